package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveVariant(t *testing.T) {
	t.Parallel()

	tests := map[string]Variant{
		"merchant":  VariantProfessional,
		" Owner ":   VariantProfessional,
		"ADMIN":     VariantProfessional,
		"customer":  VariantIndividual,
		"":          VariantIndividual,
		"superuser": VariantIndividual,
	}

	for role, want := range tests {
		assert.Equal(t, want, ResolveVariant(role), "role %q", role)
	}
}
