package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"bookshop-service/internal/auth"
	"bookshop-service/internal/domain"
	"bookshop-service/internal/store"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// invalidLinkMessage is the single answer for every activation or reset
// confirm failure: bad uid, unknown customer, wrong or expired token.
// Distinguishing those cases would let a caller enumerate accounts.
const invalidLinkMessage = "This link is invalid or has expired"

// dummyBcryptHash is compared against when a login hits an unknown
// email, so the unknown-email and wrong-password paths cost the same.
var dummyBcryptHash = func() string {
	h, _ := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcrypt.DefaultCost)
	return string(h)
}()

// RegisterInput defines the expected input for registration.
type RegisterInput struct {
	Email           string `json:"email" validate:"required,email,max=50"`
	Username        string `json:"username" validate:"required,min=6,max=20"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// Register creates an inactive customer and dispatches the activation
// mail. Mail delivery is fire-and-forget: a send failure is logged but
// the registration still succeeds, since the account exists and can be
// activated through a resend later.
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	if _, err := h.sessions.CustomerID(r); err == nil {
		respondWithError(w, http.StatusConflict, "You are already signed in")
		return
	}

	var input RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	var password domain.Password
	if err := password.Set(input.Password); err != nil {
		log.Printf("ERROR: Register failed to hash password: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to process registration")
		return
	}

	customer, err := h.customers.CreateCustomer(r.Context(), input.Email, input.Username, password.Hash)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrEmailExists):
			respondWithError(w, http.StatusConflict, "This email is already taken")
		case errors.Is(err, store.ErrUsernameExists):
			respondWithError(w, http.StatusConflict, "This username already exists")
		default:
			log.Printf("ERROR: Register store operation failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to process registration")
		}
		return
	}

	h.sendActivationMail(customer)

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "You were registered successfully. Please check your email to activate your account.",
		"customer": customer,
	})
}

func (h *HTTPHandler) sendActivationMail(customer *domain.Customer) {
	link := fmt.Sprintf("%s/api/v1/account/activate/%s/%s",
		h.siteURL, encodeUID(customer.ID), h.tokens.Make(customer))
	body := fmt.Sprintf("Hi %s,\n\nPlease activate your %s account by following this link:\n\n%s\n",
		customer.Username, h.siteName, link)
	if err := h.mailer.Send("Please, activate your account", body, customer.Email); err != nil {
		log.Printf("WARN: activation mail for customer %d not delivered: %v", customer.ID, err)
	}
}

// Activate verifies the {uid, token} pair from the activation link. On
// success the customer becomes active and is logged in straight away;
// replaying the link fails because activation changed the token
// fingerprint.
func (h *HTTPHandler) Activate(w http.ResponseWriter, r *http.Request) {
	customer := h.customerFromLink(r)
	if customer == nil || !h.tokens.Check(customer, chi.URLParam(r, "token")) {
		respondWithError(w, http.StatusBadRequest, invalidLinkMessage)
		return
	}

	if err := h.customers.SetCustomerActive(r.Context(), customer.ID, true); err != nil {
		log.Printf("ERROR: Activate failed to update customer %d: %v", customer.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to activate account")
		return
	}
	if err := h.customers.TouchLastLogin(r.Context(), customer.ID); err != nil {
		log.Printf("WARN: Activate failed to touch last_login for customer %d: %v", customer.ID, err)
	}
	if err := h.sessions.Establish(w, customer.ID); err != nil {
		log.Printf("ERROR: Activate failed to establish session: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to establish session")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Your account has been activated"})
}

// LoginInput defines the expected input for login. The login identifier
// is the email address.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates by email and password. Unknown email, wrong
// password and inactive account all fail with the same response.
func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	customer, err := h.customers.GetCustomerByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			// Equalize timing with the found-customer path.
			bcrypt.CompareHashAndPassword([]byte(dummyBcryptHash), []byte(input.Password))
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Printf("ERROR: Login store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	password := domain.Password{Hash: customer.PasswordHash}
	match, err := password.Matches(input.Password)
	if err != nil {
		log.Printf("ERROR: Login failed to compare credential: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}
	if !match || !customer.IsActive {
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := h.customers.TouchLastLogin(r.Context(), customer.ID); err != nil {
		log.Printf("WARN: Login failed to touch last_login for customer %d: %v", customer.ID, err)
	}
	if err := h.sessions.Establish(w, customer.ID); err != nil {
		log.Printf("ERROR: Login failed to establish session: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Signed in",
		"customer": customer,
	})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Terminate(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// PasswordResetRequestInput defines the expected input for requesting a
// password reset link.
type PasswordResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetRequest issues a reset link for a known email. An unknown
// email gets a distinct error, matching the long-standing storefront
// behavior even though it confirms address existence.
func (h *HTTPHandler) PasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var input PasswordResetRequestInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	customer, err := h.customers.GetCustomerByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, store.ErrCustomerNotFound) {
			respondWithError(w, http.StatusBadRequest, "We can't find that email address")
			return
		}
		log.Printf("ERROR: PasswordResetRequest store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to process reset request")
		return
	}

	link := fmt.Sprintf("%s/api/v1/account/password_reset_confirm/%s/%s",
		h.siteURL, encodeUID(customer.ID), h.tokens.Make(customer))
	body := fmt.Sprintf("Hi %s,\n\nReset your %s password by following this link:\n\n%s\n",
		customer.Username, h.siteName, link)
	if err := h.mailer.Send("Password reset", body, customer.Email); err != nil {
		log.Printf("WARN: reset mail for customer %d not delivered: %v", customer.ID, err)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "We have emailed you a password reset link"})
}

// PasswordResetConfirmInput defines the expected input for completing a
// password reset.
type PasswordResetConfirmInput struct {
	NewPassword        string `json:"new_password" validate:"required,min=8"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

// PasswordResetConfirm verifies the {uid, token} pair and replaces the
// credential. The token covers the credential hash, so it stops
// verifying the moment the new password lands.
func (h *HTTPHandler) PasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	customer := h.customerFromLink(r)
	if customer == nil || !h.tokens.Check(customer, chi.URLParam(r, "token")) {
		respondWithError(w, http.StatusBadRequest, invalidLinkMessage)
		return
	}

	var input PasswordResetConfirmInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	var password domain.Password
	if err := password.Set(input.NewPassword); err != nil {
		log.Printf("ERROR: PasswordResetConfirm failed to hash password: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	if err := h.customers.SetCustomerPassword(r.Context(), customer.ID, password.Hash); err != nil {
		log.Printf("ERROR: PasswordResetConfirm failed to store credential: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to reset password")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Your password has been reset"})
}

// Dashboard returns the signed-in customer's profile and paid orders.
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	customer, err := h.customers.GetCustomerByID(r.Context(), ac.CustomerID)
	if err != nil {
		log.Printf("ERROR: Dashboard failed to load customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}
	orders, err := h.orders.ListOrders(r.Context(), ac.CustomerID)
	if err != nil {
		log.Printf("ERROR: Dashboard failed to load orders for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load dashboard")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"customer": customer,
		"orders":   orders,
	})
}

func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	customer, err := h.customers.GetCustomerByID(r.Context(), ac.CustomerID)
	if err != nil {
		log.Printf("ERROR: GetProfile failed to load customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}
	respondWithJSON(w, http.StatusOK, customer)
}

// ProfileUpdateInput defines the editable profile fields. Email cannot
// be changed.
type ProfileUpdateInput struct {
	Username string `json:"username" validate:"required,min=6,max=20"`
}

func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	var input ProfileUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	customer, err := h.customers.UpdateCustomerUsername(r.Context(), ac.CustomerID, input.Username)
	if err != nil {
		if errors.Is(err, store.ErrUsernameExists) {
			respondWithError(w, http.StatusConflict, "This username already exists")
			return
		}
		log.Printf("ERROR: UpdateProfile failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update profile")
		return
	}
	respondWithJSON(w, http.StatusOK, customer)
}

// DeleteAccount soft-deletes the account: the row stays, is_active is
// cleared and the session ends. There is no self-service reactivation
// path from here.
func (h *HTTPHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	if err := h.customers.SetCustomerActive(r.Context(), ac.CustomerID, false); err != nil {
		log.Printf("ERROR: DeleteAccount failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to delete account")
		return
	}
	h.sessions.Terminate(w)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Your account has been deactivated"})
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	orders, err := h.orders.ListOrders(r.Context(), ac.CustomerID)
	if err != nil {
		log.Printf("ERROR: ListOrders failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

// customerFromLink resolves the {uid} path parameter to a customer. Any
// failure returns nil; callers answer with the generic invalid-link
// response so a bad uid and a bad token are indistinguishable.
func (h *HTTPHandler) customerFromLink(r *http.Request) *domain.Customer {
	id, err := decodeUID(chi.URLParam(r, "uid"))
	if err != nil {
		return nil
	}
	customer, err := h.customers.GetCustomerByID(r.Context(), id)
	if err != nil {
		return nil
	}
	return customer
}

// encodeUID obscures the numeric id in activation/reset links the same
// way the storefront always has: urlsafe base64 over the decimal form.
func encodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func decodeUID(encoded string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid uid")
	}
	return id, nil
}
