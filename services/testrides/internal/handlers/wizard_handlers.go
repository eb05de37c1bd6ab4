package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/diagnosis/testride-bookings/pkg/middleware"
	"github.com/diagnosis/testride-bookings/pkg/response"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/service"
	"github.com/diagnosis/testride-bookings/services/testrides/internal/wizard"
	"github.com/go-chi/chi/v5"
)

type contactReq struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type bikeReq struct {
	BikeModel string `json:"bike_model"`
}

type signatureReq struct {
	SignatureData string `json:"signature_data"`
}

type waiverReq struct {
	Agreed bool `json:"agreed"`
}

type confirmReq struct {
	PaymentMethod string `json:"payment_method"`
}

func (h *Handlers) StartWizard(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusCreated, h.wizard.Start(r.Context()))
}

func (h *Handlers) GetWizard(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var in contactReq
	if err := decodeJSON(r, &in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	h.apply(w, r, wizard.SubmitContact{Contact: wizard.Contact{Name: in.Name, Phone: in.Phone, Email: in.Email}})
}

func (h *Handlers) SelectBike(w http.ResponseWriter, r *http.Request) {
	var in bikeReq
	if err := decodeJSON(r, &in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	h.apply(w, r, wizard.SelectBike{Model: in.BikeModel})
}

func (h *Handlers) AcknowledgeWaiver(w http.ResponseWriter, r *http.Request) {
	var in waiverReq
	if err := decodeJSON(r, &in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	h.apply(w, r, wizard.AcknowledgeWaiver{
		Agreed: in.Agreed,
		At:     time.Now().UTC(),
		IP:     middleware.ClientIP(r),
	})
}

func (h *Handlers) Continue(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, wizard.Continue{})
}

func (h *Handlers) Back(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, wizard.Back{})
}

func (h *Handlers) StartOver(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, wizard.StartOver{At: time.Now().UTC()})
}

func (h *Handlers) UploadIDPhoto(w http.ResponseWriter, r *http.Request) {
	// multipart overhead on top of the photo itself
	limit := h.maxPhotoBytes + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			response.BadRequest(w, service.ErrPhotoTooLarge.Error())
			return
		}
		response.BadRequest(w, "expected multipart form with a photo field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("photo")
	if err != nil {
		response.BadRequest(w, "photo field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxPhotoBytes+1))
	if err != nil {
		response.BadRequest(w, "could not read photo")
		return
	}

	sess, err := h.wizard.UploadIDPhoto(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) CaptureSignature(w http.ResponseWriter, r *http.Request) {
	var in signatureReq
	if err := decodeJSON(r, &in); err != nil {
		response.BadRequest(w, "invalid json")
		return
	}
	sess, err := h.wizard.CaptureSignature(r.Context(), chi.URLParam(r, "id"), in.SignatureData)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) MountPayment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.MountPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var in confirmReq
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &in); err != nil {
			response.BadRequest(w, "invalid json")
			return
		}
	}
	sess, err := h.wizard.ConfirmPayment(r.Context(), chi.URLParam(r, "id"), in.PaymentMethod)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) RefreshPayment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.RefreshPayment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) Commit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.wizard.Commit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handlers) apply(w http.ResponseWriter, r *http.Request, a wizard.Action) {
	sess, err := h.wizard.Apply(r.Context(), chi.URLParam(r, "id"), a)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, sess)
}
