package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ayo6706/wallet-ledger/internal/api/middleware"
	"github.com/ayo6706/wallet-ledger/internal/api/problem"
	"github.com/ayo6706/wallet-ledger/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RespondJSON writes a JSON response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// RespondError writes an RFC 7807 error response.
func RespondError(w http.ResponseWriter, r *http.Request, status int, problemType, message string) {
	if problemType != "" && problemType != "about:blank" && !strings.HasPrefix(problemType, "http") {
		problemType = problem.Type(problemType)
	}
	problem.Write(w, r, status, problemType, http.StatusText(status), message)
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. It writes the error response itself and reports whether
// the caller may proceed.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		RespondError(w, r, http.StatusUnprocessableEntity, "request/validation-failed", validationDetail(err))
		return false
	}
	return true
}

func validationDetail(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "request validation failed"
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return "invalid fields: " + strings.Join(fields, ", ")
}

// requestActor returns the authenticated wallet owner from the auth
// boundary.
func requestActor(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, errors.New("missing user in auth context")
	}
	actorID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, errors.New("invalid user_id in auth context")
	}
	return actorID, nil
}

// respondServiceError maps ledger errors onto problem responses without
// leaking internal detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrWalletNotFound):
		RespondError(w, r, http.StatusNotFound, "wallet/not-found", "wallet not found")
	case errors.Is(err, models.ErrTransactionNotFound):
		RespondError(w, r, http.StatusNotFound, "transaction/not-found", "transaction not found")
	case errors.Is(err, models.ErrInsufficientBalance):
		RespondError(w, r, http.StatusUnprocessableEntity, "transfer/insufficient-balance", "insufficient balance")
	case errors.Is(err, models.ErrInvalidTransfer):
		RespondError(w, r, http.StatusBadRequest, "transfer/invalid", err.Error())
	case errors.Is(err, models.ErrDuplicateTransaction):
		RespondError(w, r, http.StatusConflict, "transaction/duplicate", "transaction already processed")
	case errors.Is(err, models.ErrGatewayUnavailable):
		RespondError(w, r, http.StatusBadGateway, "gateway/unavailable", "payment gateway unavailable")
	default:
		RespondError(w, r, http.StatusInternalServerError, "internal-error", "unexpected server error")
	}
}
