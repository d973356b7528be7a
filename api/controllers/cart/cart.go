package cart

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/gaslink-africa/gaslink-backend/api/middleware"
	"github.com/gaslink-africa/gaslink-backend/api/responses"
	internalcart "github.com/gaslink-africa/gaslink-backend/internal/cart"
	pkgerrors "github.com/gaslink-africa/gaslink-backend/pkg/errors"
	"github.com/gaslink-africa/gaslink-backend/pkg/logger"
)

// List returns the customer's saved cart entries.
func List(repo internalcart.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		items, err := repo.ListByCustomer(r.Context(), principal.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing cart"))
			return
		}

		views := make([]itemView, 0, len(items))
		for _, item := range items {
			views = append(views, itemView{
				ID:        item.ID,
				ListingID: item.ListingID,
				Quantity:  item.Quantity,
				AddedAt:   item.CreatedAt,
			})
		}
		responses.WriteSuccess(w, cartView{Items: views})
	}
}

type cartView struct {
	Items []itemView `json:"items"`
}

type itemView struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}
