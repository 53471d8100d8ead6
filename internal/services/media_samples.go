package services

import "time"

const sampleImageParams = "?auto=format&fit=crop&w=1200&q=80"

// sampleGallery is shown until real memories exist, or whenever the mock
// dashboard toggle is on.
func sampleGallery() []GalleryItem {
	return []GalleryItem{
		{
			ID:              "mock-1",
			ImageURL:        "https://images.unsplash.com/photo-1524504388940-b1c1722653e1" + sampleImageParams,
			Caption:         "Grandma teaching Maya how to bake the family cinnamon rolls on Saturday morning.",
			ConfidenceLabel: confidenceLabel(floatPtr(0.93)),
			ProcessedAt:     timePtr(time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)),
		},
		{
			ID:              "mock-2",
			ImageURL:        "https://images.unsplash.com/photo-1527153907022-465ee4752fdc" + sampleImageParams,
			Caption:         "First robotics club showcase, the team cheered when the robot completed its loop.",
			ConfidenceLabel: confidenceLabel(floatPtr(0.88)),
			AudioURL:        stringPtr("https://samplelib.com/lib/preview/mp3/sample-3s.mp3"),
			ProcessedAt:     timePtr(time.Date(2024, time.June, 3, 18, 30, 0, 0, time.UTC)),
		},
		{
			ID:              "mock-3",
			ImageURL:        "https://images.unsplash.com/photo-1519681393784-d120267933ba" + sampleImageParams,
			Caption:         "End-of-term art show: Olivia and her grandparents admiring the mural she painted together with her class.",
			ConfidenceLabel: confidenceLabel(floatPtr(0.97)),
			ProcessedAt:     timePtr(time.Date(2024, time.June, 5, 8, 45, 0, 0, time.UTC)),
		},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}
