package billing

import (
	"context"

	"ask_gateway/internal/profile"
	"ask_gateway/internal/utils"
)

// Directory resolves application users to payment provider customers. It
// consults the profile mirror first, then falls back to an email search, and
// only creates a customer when neither finds one. Every path writes the
// resolved customer back to the mirror best effort.
type Directory struct {
	api      CustomerAPI
	profiles profile.Store
	logger   *utils.Logger
}

// NewDirectory creates a customer directory.
func NewDirectory(api CustomerAPI, profiles profile.Store, logger *utils.Logger) *Directory {
	return &Directory{
		api:      api,
		profiles: profiles,
		logger:   logger,
	}
}

// EnsureCustomer returns the provider customer ID for userID, creating the
// customer when necessary. A failing profile store never blocks resolution.
func (d *Directory) EnsureCustomer(ctx context.Context, userID, email string) (string, error) {
	m, ok, err := d.profiles.Get(ctx, userID)
	if err != nil {
		d.logger.Warn("profile lookup failed, falling back to provider", "user_id", userID, "error", err)
	}
	if ok && m.CustomerID != "" {
		return m.CustomerID, nil
	}

	if email != "" {
		cust, err := d.api.SearchCustomerByEmail(ctx, email)
		if err != nil {
			d.logger.Warn("customer search failed", "user_id", userID, "error", err)
		} else if cust != nil {
			d.remember(ctx, userID, profile.Mapping{CustomerID: cust.ID, Email: email})
			return cust.ID, nil
		}
	}

	cust, err := d.api.CreateCustomer(ctx, email, userID)
	if err != nil {
		return "", providerError(err)
	}

	d.remember(ctx, userID, profile.Mapping{CustomerID: cust.ID, Email: email})
	return cust.ID, nil
}

func (d *Directory) remember(ctx context.Context, userID string, m profile.Mapping) {
	if err := d.profiles.Put(ctx, userID, m); err != nil {
		d.logger.Warn("profile write failed", "user_id", userID, "error", err)
	}
}
