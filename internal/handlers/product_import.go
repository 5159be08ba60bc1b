package handlers

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"storefront/internal/models"
)

const (
	importDefaultCategory = "General"
	importMaxFileSize     = 10 << 20
)

type importRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// parseProductRows reads CSV content with a header row and produces one
// product per data row. Missing optional columns fall back to defaults:
// quantity 0, category "General", empty sku and image. Rows without a name
// or with malformed numbers are reported, not fatal.
func parseProductRows(r io.Reader) ([]models.Product, []importRowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("missing header row: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := columns["name"]; !ok {
		return nil, nil, fmt.Errorf("header must contain a name column")
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var products []models.Product
	var rowErrors []importRowError

	for row := 2; ; row++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, importRowError{Row: row, Error: err.Error()})
			continue
		}

		name := field(record, "name")
		if name == "" {
			rowErrors = append(rowErrors, importRowError{Row: row, Error: "name is required"})
			continue
		}

		price := 0.0
		if raw := field(record, "price"); raw != "" {
			price, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				rowErrors = append(rowErrors, importRowError{Row: row, Error: "invalid price: " + raw})
				continue
			}
		}

		quantity := 0
		if raw := field(record, "quantity"); raw != "" {
			quantity, err = strconv.Atoi(raw)
			if err != nil {
				rowErrors = append(rowErrors, importRowError{Row: row, Error: "invalid quantity: " + raw})
				continue
			}
		}

		category := field(record, "category")
		if category == "" {
			category = importDefaultCategory
		}

		now := time.Now().UTC()
		products = append(products, models.Product{
			ID:          primitive.NewObjectID(),
			Name:        name,
			Description: field(record, "description"),
			Price:       price,
			Category:    category,
			Quantity:    quantity,
			SKU:         field(record, "sku"),
			ImageURL:    field(record, "image_url"),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	return products, rowErrors, nil
}

// ImportProducts accepts a CSV upload and inserts one product per row.
func ImportProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products/import"
		defer handlePanic(c, route)

		fileHeader, err := c.FormFile("file")
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "file is required")
			return
		}
		if fileHeader.Size > importMaxFileSize {
			respondWithError(c, http.StatusBadRequest, route, "file too large")
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "could not open file")
			return
		}
		defer file.Close()

		products, rowErrors, err := parseProductRows(file)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		inserted := 0
		if len(products) > 0 {
			docs := make([]interface{}, len(products))
			for i := range products {
				docs[i] = products[i]
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
			defer cancel()

			res, err := db.Collection("products").InsertMany(ctx, docs)
			if err != nil {
				respondWithError(c, http.StatusInternalServerError, route, "db error")
				return
			}
			inserted = len(res.InsertedIDs)
		}

		c.JSON(http.StatusOK, gin.H{
			"message":  fmt.Sprintf("successfully added %d products", inserted),
			"inserted": inserted,
			"errors":   rowErrors,
		})
	}
}
