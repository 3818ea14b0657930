package reviews

import (
	"time"

	"github.com/fjod/artisan_market/internal/domain"
)

// DemoReviews returns the sample reviews for artisan 1.
func DemoReviews() []domain.Review {
	day := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	respondedSophie := day(2024, time.March, 16)
	respondedEmma := day(2024, time.February, 11)

	return []domain.Review{
		{
			ID: 1, ArtisanID: 1, Name: "Sophie Martin", Avatar: "/assets/user1.jpg", Rating: 5,
			Date:         day(2024, time.March, 15),
			Text:         "I ordered a full dinner service for my new house and I am delighted! The quality is exceptional and Marie listened closely to what I needed.",
			Response:     "Thank you so much Sophie! It was a pleasure to work on this project with you.",
			ResponseDate: &respondedSophie,
		},
		{
			ID: 2, ArtisanID: 1, Name: "Thomas Durand", Avatar: "/assets/user2.jpg", Rating: 4,
			Date: day(2024, time.February, 28),
			Text: "Beautiful Ocean collection, the colours are superb. Only downside is the rather long delivery time.",
		},
		{
			ID: 3, ArtisanID: 1, Name: "Emma Petit", Avatar: "/assets/user3.jpg", Rating: 5,
			Date:         day(2024, time.February, 10),
			Text:         "Unique, finely made pieces. You can feel the craftsmanship and passion in every creation. Highly recommended!",
			Response:     "Thank you Emma for the warm feedback! I am so glad you like my work.",
			ResponseDate: &respondedEmma,
		},
		{
			ID: 4, ArtisanID: 1, Name: "Lucas Moreau", Avatar: "/assets/user4.jpg", Rating: 3,
			Date: day(2024, time.January, 20),
			Text: "Quality products but a bit expensive compared to the competition. Customer service is excellent though.",
		},
	}
}
