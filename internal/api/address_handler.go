package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bookshop-service/internal/auth"
	"bookshop-service/internal/domain"
	"bookshop-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AddressInput defines the expected input for creating or updating an
// address.
type AddressInput struct {
	FullName             string `json:"full_name" validate:"required,max=50"`
	Phone                string `json:"phone" validate:"required,max=20"`
	Postcode             string `json:"postcode" validate:"required,max=20"`
	AddressLine1         string `json:"address_line_1" validate:"max=90"`
	AddressLine2         string `json:"address_line_2" validate:"max=90"`
	City                 string `json:"city" validate:"max=150"`
	DeliveryInstructions string `json:"delivery_instructions" validate:"max=200"`
}

func (h *HTTPHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	addresses, err := h.addresses.ListAddresses(r.Context(), ac.CustomerID)
	if err != nil {
		log.Printf("ERROR: ListAddresses failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve addresses")
		return
	}
	respondWithJSON(w, http.StatusOK, addresses)
}

func (h *HTTPHandler) CreateAddress(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var input AddressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.addresses.CreateAddress(r.Context(), &domain.Address{
		CustomerID:           ac.CustomerID,
		FullName:             input.FullName,
		Phone:                input.Phone,
		Postcode:             input.Postcode,
		AddressLine1:         input.AddressLine1,
		AddressLine2:         input.AddressLine2,
		City:                 input.City,
		DeliveryInstructions: input.DeliveryInstructions,
	})
	if err != nil {
		log.Printf("ERROR: CreateAddress failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to create address")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	addressID, ok := addressIDParam(w, r)
	if !ok {
		return
	}

	address, err := h.addresses.GetAddress(r.Context(), ac.CustomerID, addressID)
	if err != nil {
		if errors.Is(err, store.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrAddressNotFound.Error())
			return
		}
		log.Printf("ERROR: GetAddress failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve address")
		return
	}
	respondWithJSON(w, http.StatusOK, address)
}

func (h *HTTPHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	addressID, ok := addressIDParam(w, r)
	if !ok {
		return
	}

	var input AddressInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	updated, err := h.addresses.UpdateAddress(r.Context(), &domain.Address{
		ID:                   addressID,
		CustomerID:           ac.CustomerID,
		FullName:             input.FullName,
		Phone:                input.Phone,
		Postcode:             input.Postcode,
		AddressLine1:         input.AddressLine1,
		AddressLine2:         input.AddressLine2,
		City:                 input.City,
		DeliveryInstructions: input.DeliveryInstructions,
	})
	if err != nil {
		if errors.Is(err, store.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrAddressNotFound.Error())
			return
		}
		log.Printf("ERROR: UpdateAddress failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update address")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	addressID, ok := addressIDParam(w, r)
	if !ok {
		return
	}

	if err := h.addresses.DeleteAddress(r.Context(), ac.CustomerID, addressID); err != nil {
		if errors.Is(err, store.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrAddressNotFound.Error())
			return
		}
		log.Printf("ERROR: DeleteAddress failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete address")
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}

func (h *HTTPHandler) SetDefaultAddress(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	addressID, ok := addressIDParam(w, r)
	if !ok {
		return
	}

	if err := h.addresses.SetDefaultAddress(r.Context(), ac.CustomerID, addressID); err != nil {
		if errors.Is(err, store.ErrAddressNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrAddressNotFound.Error())
			return
		}
		log.Printf("ERROR: SetDefaultAddress failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to set default address")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Default address updated"})
}

func addressIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "addressID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid address ID format")
		return uuid.Nil, false
	}
	return id, true
}
