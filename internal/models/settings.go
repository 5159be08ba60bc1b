package models

// SiteSettings holds the contact block shown on the public site.
type SiteSettings struct {
	Phone               string  `bson:"phone" json:"phone"`
	Email               string  `bson:"email" json:"email"`
	Address             string  `bson:"address" json:"address"`
	WorkingHoursWeekday string  `bson:"working_hours_weekday" json:"working_hours_weekday"`
	WorkingHoursWeekend string  `bson:"working_hours_weekend" json:"working_hours_weekend"`
	MapLat              float64 `bson:"map_lat" json:"map_lat"`
	MapLng              float64 `bson:"map_lng" json:"map_lng"`
}

// AboutContent holds the editable about-page copy.
type AboutContent struct {
	HeroTitle    string              `bson:"hero_title" json:"hero_title"`
	HeroSubtitle string              `bson:"hero_subtitle" json:"hero_subtitle"`
	StoryTitle   string              `bson:"story_title" json:"story_title"`
	StoryContent string              `bson:"story_content" json:"story_content"`
	Mission      string              `bson:"mission" json:"mission"`
	Vision       string              `bson:"vision" json:"vision"`
	Values       []map[string]string `bson:"values" json:"values"`
}

func DefaultSiteSettings() SiteSettings {
	return SiteSettings{
		Phone:               "+998 (98) 177 36 33",
		Email:               "reklamasavdo4@gmail.com",
		Address:             "Andijan, Uzbekistan",
		WorkingHoursWeekday: "Monday - Saturday: 9:00 AM - 7:00 PM",
		WorkingHoursWeekend: "Sunday: 11:00 AM - 6:00 PM",
		MapLat:              40.7877600,
		MapLng:              72.3417839,
	}
}

func DefaultAboutContent() AboutContent {
	return AboutContent{
		HeroTitle:    "REKLAMA SAVDO",
		HeroSubtitle: "We are a leading provider of advertising signage and digital printing materials.",
		StoryTitle:   "Building Brands Since Day One",
		StoryContent: "REKLAMA SAVDO was founded with a simple mission: to help businesses stand out.",
		Mission:      "To deliver exceptional advertising solutions that make brands shine.",
		Vision:       "To be the most trusted partner for businesses seeking quality signage.",
		Values:       []map[string]string{},
	}
}
