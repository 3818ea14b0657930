package domain

// BadgeID identifies an entry of the badge catalog.
type BadgeID string

const (
	BadgeCertified   BadgeID = "certified"
	BadgeExpert      BadgeID = "expert"
	BadgeEco         BadgeID = "eco"
	BadgeLocal       BadgeID = "local"
	BadgeHandmade    BadgeID = "handmade"
	BadgeQuality     BadgeID = "quality"
	BadgeTraditional BadgeID = "traditional"
	BadgeInnovation  BadgeID = "innovation"
	BadgeMOF         BadgeID = "mof"
)

type Badge struct {
	ID          BadgeID `json:"id"`
	Name        string  `json:"name"`
	Icon        string  `json:"icon"`
	Color       string  `json:"color"`
	Description string  `json:"description"`
}

// Artisan carries the attributes badge rules look at.
type Artisan struct {
	ID                 int64    `json:"id"`
	Name               string   `json:"name"`
	Certified          bool     `json:"certified"`
	Experience         int      `json:"experience"`
	EcoFriendly        bool     `json:"ecoFriendly"`
	LocalProduction    bool     `json:"localProduction"`
	Handmade           bool     `json:"handmade"`
	Rating             float64  `json:"rating"`
	TraditionalMethods bool     `json:"traditionalMethods"`
	Innovative         bool     `json:"innovative"`
	Certifications     []string `json:"certifications"`
}
