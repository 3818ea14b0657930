// Package badges maps artisan attributes to entries of a fixed badge catalog.
package badges

import (
	"slices"
	"strings"

	"github.com/fjod/artisan_market/internal/domain"
)

const (
	ExpertMinExperience = 10
	QualityMinRating    = 4.5
	mofTitle            = "Meilleur Ouvrier de France"
)

var catalog = []domain.Badge{
	{ID: domain.BadgeCertified, Name: "Certified Artisan", Icon: "fa-certificate", Color: "#4CAF50", Description: "Artisan verified by our team"},
	{ID: domain.BadgeExpert, Name: "Expert", Icon: "fa-award", Color: "#FF9800", Description: "More than 10 years of experience in their field"},
	{ID: domain.BadgeEco, Name: "Eco-friendly", Icon: "fa-leaf", Color: "#8BC34A", Description: "Uses environmentally friendly materials and methods"},
	{ID: domain.BadgeLocal, Name: "Local Production", Icon: "fa-map-marker-alt", Color: "#2196F3", Description: "Products made locally"},
	{ID: domain.BadgeHandmade, Name: "100% Handmade", Icon: "fa-hands", Color: "#9C27B0", Description: "Every product is entirely handmade"},
	{ID: domain.BadgeQuality, Name: "Premium Quality", Icon: "fa-star", Color: "#FFC107", Description: "Products of exceptional quality"},
	{ID: domain.BadgeTraditional, Name: "Traditional Methods", Icon: "fa-history", Color: "#795548", Description: "Uses traditional ancestral techniques"},
	{ID: domain.BadgeInnovation, Name: "Innovation", Icon: "fa-lightbulb", Color: "#00BCD4", Description: "Brings innovative techniques to their craft"},
	{ID: domain.BadgeMOF, Name: mofTitle, Icon: "fa-trophy", Color: "#F44336", Description: "Holder of the Meilleur Ouvrier de France title"},
}

// Catalog returns every badge in display order.
func Catalog() []domain.Badge {
	return slices.Clone(catalog)
}

func ByID(id domain.BadgeID) (domain.Badge, bool) {
	i := slices.IndexFunc(catalog, func(b domain.Badge) bool { return b.ID == id })
	if i < 0 {
		return domain.Badge{}, false
	}
	return catalog[i], true
}

// ByIDs returns the catalog entries named in ids, in catalog order. Unknown
// ids are ignored.
func ByIDs(ids []domain.BadgeID) []domain.Badge {
	out := make([]domain.Badge, 0, len(ids))
	for _, b := range catalog {
		if slices.Contains(ids, b.ID) {
			out = append(out, b)
		}
	}
	return out
}

// AutomaticBadges evaluates each badge rule against a.
func AutomaticBadges(a domain.Artisan) []domain.BadgeID {
	var ids []domain.BadgeID
	if a.Certified {
		ids = append(ids, domain.BadgeCertified)
	}
	if a.Experience >= ExpertMinExperience {
		ids = append(ids, domain.BadgeExpert)
	}
	if a.EcoFriendly {
		ids = append(ids, domain.BadgeEco)
	}
	if a.LocalProduction {
		ids = append(ids, domain.BadgeLocal)
	}
	if a.Handmade {
		ids = append(ids, domain.BadgeHandmade)
	}
	if slices.ContainsFunc(a.Certifications, func(c string) bool { return strings.Contains(c, mofTitle) }) {
		ids = append(ids, domain.BadgeMOF)
	}
	if a.TraditionalMethods {
		ids = append(ids, domain.BadgeTraditional)
	}
	if a.Innovative {
		ids = append(ids, domain.BadgeInnovation)
	}
	if a.Rating >= QualityMinRating {
		ids = append(ids, domain.BadgeQuality)
	}
	return ids
}

// BadgesFor returns the badges shown for a. Every artisan on the platform is
// shown as certified and handmade.
func BadgesFor(a domain.Artisan) []domain.Badge {
	ids := AutomaticBadges(a)
	for _, always := range []domain.BadgeID{domain.BadgeCertified, domain.BadgeHandmade} {
		if !slices.Contains(ids, always) {
			ids = append(ids, always)
		}
	}
	return ByIDs(ids)
}
