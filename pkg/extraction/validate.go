package extraction

import (
	"ReceiptRadar-Backend/domain"
)

// IsStructurallyValid decides whether an ExtractionResult is shaped well
// enough to act on. This is distinct from the semantic Validation.IsValid flag
// the service reports: a well-formed "not a receipt" verdict passes here and
// must reach the caller as-is. First violation rejects the whole result.
func IsStructurallyValid(result *domain.ExtractionResult) bool {
	if result == nil || result.Validation == nil || result.Items == nil {
		return false
	}
	for _, item := range result.Items {
		if item.Name == "" {
			return false
		}
		if item.Price < 0 {
			return false
		}
	}
	return true
}
