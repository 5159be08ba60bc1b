package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildProductFilterEmpty(t *testing.T) {
	filter := buildProductFilter("", "  ")
	if len(filter) != 0 {
		t.Fatalf("expected empty filter, got %v", filter)
	}
}

func TestBuildProductFilterCategoryExactMatch(t *testing.T) {
	filter := buildProductFilter(" Home ", "")
	if filter["category"] != "Home" {
		t.Fatalf("expected exact category match on %q, got %v", "Home", filter)
	}
	if _, ok := filter["$or"]; ok {
		t.Fatal("did not expect a search clause")
	}
}

func TestBuildProductFilterSearchEscapesRegex(t *testing.T) {
	filter := buildProductFilter("", "mug (blue)")

	or, ok := filter["$or"].(bson.A)
	if !ok || len(or) != 2 {
		t.Fatalf("expected $or over name and description, got %v", filter)
	}
	nameClause, ok := or[0].(bson.M)["name"].(bson.M)
	if !ok {
		t.Fatalf("expected name regex clause, got %v", or[0])
	}
	if nameClause["$regex"] != `mug \(blue\)` {
		t.Fatalf("expected regex metacharacters to be escaped, got %v", nameClause["$regex"])
	}
	if nameClause["$options"] != "i" {
		t.Fatal("expected case-insensitive search")
	}
}

func TestBuildProductFilterCategoryAndSearch(t *testing.T) {
	filter := buildProductFilter("Kitchen", "cup")
	if filter["category"] != "Kitchen" {
		t.Fatalf("expected category clause, got %v", filter)
	}
	if _, ok := filter["$or"]; !ok {
		t.Fatalf("expected search clause alongside category, got %v", filter)
	}
}
