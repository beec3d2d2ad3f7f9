package shop

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// KeySeparator joins product ID and size label into a variant key.
// "::" cannot appear in a UUID, so parsing is unambiguous even for
// size labels that contain hyphens ("2-pack").
const KeySeparator = "::"

// VariantKey addresses one purchasable variant: a product plus a size label.
type VariantKey struct {
	ProductID uuid.UUID
	SizeLabel string
}

func (k VariantKey) String() string {
	return k.ProductID.String() + KeySeparator + k.SizeLabel
}

func (k VariantKey) IsZero() bool {
	return k.ProductID == uuid.Nil && k.SizeLabel == ""
}

// ParseVariantKey parses the canonical "{productID}::{sizeLabel}" form.
func ParseVariantKey(s string) (VariantKey, error) {
	id, label, found := strings.Cut(s, KeySeparator)
	if !found {
		return VariantKey{}, fmt.Errorf("variant key %q: missing %q separator", s, KeySeparator)
	}
	if label == "" {
		return VariantKey{}, fmt.Errorf("variant key %q: empty size label", s)
	}
	productID, err := uuid.Parse(id)
	if err != nil {
		return VariantKey{}, fmt.Errorf("variant key %q: bad product id: %w", s, err)
	}
	return VariantKey{ProductID: productID, SizeLabel: label}, nil
}
