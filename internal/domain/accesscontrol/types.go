package accesscontrol

import "strings"

type RoleName string

const (
	RoleAdmin    RoleName = "admin"
	RoleOwner    RoleName = "owner"
	RoleCustomer RoleName = "customer"
	RoleMerchant RoleName = "merchant"
)

// Variant selects which set of views an account gets. It is resolved once,
// when the session's token is validated, and carried in the request context.
type Variant string

const (
	VariantProfessional Variant = "professional"
	VariantIndividual   Variant = "individual"
)

// ResolveVariant maps a role claim to a view variant. Unknown or empty roles
// fall back to the individual variant.
func ResolveVariant(role string) Variant {
	switch RoleName(strings.ToLower(strings.TrimSpace(role))) {
	case RoleMerchant, RoleOwner, RoleAdmin:
		return VariantProfessional
	default:
		return VariantIndividual
	}
}
