package extraction

import (
	"ReceiptRadar-Backend/domain"
)

// NewFallbackResult builds the deterministic "nothing could be extracted"
// result used whenever the recognition service cannot be trusted. Always
// structurally valid, always semantically invalid.
func NewFallbackResult(reason string) *domain.ExtractionResult {
	if reason == "" {
		reason = "Unable to process receipt"
	}
	return &domain.ExtractionResult{
		Items: []domain.ExtractedItem{},
		Total: 0,
		Validation: &domain.ExtractionValidation{
			IsValid:         false,
			ConfidenceScore: 0,
			Issues:          []string{reason},
		},
		ProcessingTime: 0,
	}
}
