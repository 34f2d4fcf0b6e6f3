package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/frankss230/AFE-plus-2/internal/pkg/application/cases"
	"github.com/frankss230/AFE-plus-2/internal/pkg/application/escalation"
	"github.com/frankss230/AFE-plus-2/internal/pkg/application/telemetry"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/logging"
	"github.com/frankss230/AFE-plus-2/internal/pkg/infrastructure/repositories/database"
	"github.com/frankss230/AFE-plus-2/pkg/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("care-alert/api")

func RegisterHandlers(ctx context.Context, router *chi.Mux, sosSvc escalation.EscalationService, telemetrySvc telemetry.TelemetryService, caseSvc cases.CaseService, registry database.RegistryRepository, tokenAuth *jwtauth.JWTAuth) (*chi.Mux, error) {

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Route("/api/v0", func(r chi.Router) {
		r.Route("/signals", func(r chi.Router) {
			r.Post("/sos", sosHandler(sosSvc))
			r.Post("/fall", fallHandler(telemetrySvc))
			r.Post("/temperature", temperatureHandler(telemetrySvc))
			r.Post("/location", locationHandler(registry))
		})

		r.Post("/cases/accept", acceptCallHandler(caseSvc))
		r.Post("/actions", actionHandler(caseSvc))

		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Get("/cases", queryCasesHandler(caseSvc))
			r.Get("/cases/{caseID}", getCaseHandler(caseSvc))
		})
	})

	return router, nil
}

func sosHandler(svc escalation.EscalationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "handle-sos")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		req := sosRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil || req.DependentID == "" {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: "missing parameter dependentId"})
			return
		}

		result, err := svc.HandleSOS(ctx, req.DependentID)
		if err != nil {
			if errors.Is(err, database.ErrDependentNotFound) || errors.Is(err, database.ErrCaretakerNotFound) {
				writeJSON(w, http.StatusNotFound, apiResponse{Message: "error", Data: err.Error()})
				return
			}
			log.Error().Err(err).Msg("failed to handle sos signal")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			return
		}

		resp := sosResponse{
			CanEscalate: result.CanEscalate,
			BlockReason: result.BlockReason,
			SosDecision: sosDecision{
				Decision:      result.Decision.String(),
				Distance:      result.Distance,
				Radius:        result.Radius,
				HasActiveCase: result.HasOpenCase,
			},
		}

		if result.Distance != nil && result.Radius != nil {
			outside := *result.Distance > *result.Radius
			resp.SosDecision.IsOutsideSafezone = &outside
		}

		if result.Case != nil {
			resp.CaseID = result.Case.ID
		}

		switch {
		case result.Decision == escalation.DecisionIndeterminate:
			resp.Message = "error"
			writeJSON(w, http.StatusBadRequest, resp)
		case !result.CanEscalate:
			resp.Message = "blocked"
			writeJSON(w, http.StatusConflict, resp)
		default:
			resp.Message = "success"
			writeJSON(w, http.StatusOK, resp)
		}
	}
}

func fallHandler(svc telemetry.TelemetryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "handle-fall")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		req := fallRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: "malformed request body"})
			return
		}

		err = req.validate()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: err.Error()})
			return
		}

		err = svc.HandleFall(ctx, telemetry.FallReading{
			Pair:      types.Pair{CaretakerID: req.CaretakerID, DependentID: req.DependentID},
			XAxis:     *req.XAxis,
			YAxis:     *req.YAxis,
			ZAxis:     *req.ZAxis,
			Status:    *req.Status,
			Latitude:  *req.Latitude,
			Longitude: *req.Longitude,
		})
		if err != nil {
			if errors.Is(err, database.ErrDependentNotFound) || errors.Is(err, database.ErrCaretakerNotFound) {
				writeJSON(w, http.StatusNotFound, apiResponse{Message: "error", Data: err.Error()})
				return
			}
			log.Error().Err(err).Msg("failed to handle fall telemetry")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{Message: "success"})
	}
}

func temperatureHandler(svc telemetry.TelemetryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "handle-temperature")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		req := temperatureRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: "malformed request body"})
			return
		}

		err = req.validate()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: err.Error()})
			return
		}

		err = svc.HandleTemperature(ctx, telemetry.TemperatureReading{
			Pair:  types.Pair{CaretakerID: req.CaretakerID, DependentID: req.DependentID},
			Value: *req.Value,
		})
		if err != nil {
			if errors.Is(err, database.ErrDependentNotFound) || errors.Is(err, database.ErrCaretakerNotFound) {
				writeJSON(w, http.StatusNotFound, apiResponse{Message: "error", Data: err.Error()})
				return
			}
			log.Error().Err(err).Msg("failed to handle temperature telemetry")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{Message: "success"})
	}
}

func locationHandler(registry database.RegistryRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "handle-location")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		req := locationRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: "malformed request body"})
			return
		}

		err = req.validate()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: err.Error()})
			return
		}

		err = registry.AddLocation(ctx, types.Location{
			Pair:       types.Pair{CaretakerID: req.CaretakerID, DependentID: req.DependentID},
			Latitude:   *req.Latitude,
			Longitude:  *req.Longitude,
			Distance:   *req.Distance,
			ObservedAt: time.Now().UTC(),
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to store location")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{Message: "success"})
	}
}

func acceptCallHandler(svc cases.CaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "accept-call")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		req := acceptCallRequest{}
		err = json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: "malformed request body"})
			return
		}

		err = req.validate()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: err.Error()})
			return
		}

		_, err = svc.Accept(ctx, req.CaseID, req.ActorID, req.GroupID)
		if err != nil {
			switch {
			case errors.Is(err, database.ErrCaseNotFound):
				writeJSON(w, http.StatusNotFound, apiResponse{Message: "error", Data: "case not found"})
			case errors.Is(err, database.ErrAlreadyReceived), errors.Is(err, database.ErrAlreadyClosed):
				writeJSON(w, http.StatusConflict, apiResponse{Message: "error", Data: "case is not available"})
			default:
				log.Error().Err(err).Msg("failed to accept case")
				writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			}
			return
		}

		writeJSON(w, http.StatusOK, acceptCallResponse{Message: "success", Tel: req.Phone})
	}
}

func actionHandler(svc cases.CaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "handle-action")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		action := types.Action{}
		err = json.NewDecoder(r.Body).Decode(&action)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: "malformed action descriptor"})
			return
		}

		err = action.Validate()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiResponse{Message: "error", Data: err.Error()})
			return
		}

		switch action.Kind {
		case types.ActionKindAccept:
			_, err = svc.Accept(ctx, action.CaseID, action.ActorChatID, action.ActorChatID)
		case types.ActionKindClose:
			_, err = svc.Close(ctx, action.CaseID, action.ActorChatID, action.ActorChatID)
		}

		if err != nil {
			switch {
			case errors.Is(err, database.ErrCaseNotFound):
				writeJSON(w, http.StatusNotFound, apiResponse{Message: "error", Data: "case not found"})
			case errors.Is(err, database.ErrAlreadyReceived),
				errors.Is(err, database.ErrAlreadyClosed),
				errors.Is(err, database.ErrNotYetReceived):
				writeJSON(w, http.StatusConflict, apiResponse{Message: "error", Data: err.Error()})
			default:
				log.Error().Err(err).Str("case_id", action.CaseID).Msg("failed to apply case action")
				writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			}
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{Message: "success"})
	}
}

func queryCasesHandler(svc cases.CaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "query-cases")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		onlyOpen := r.URL.Query().Get("open") == "true"

		all, err := svc.Get(ctx, onlyOpen)
		if err != nil {
			log.Error().Err(err).Msg("failed to query cases")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{
			Message: "success",
			Data:    lo.Map(all, func(c types.Case, _ int) caseResponse { return newCaseResponse(c) }),
		})
	}
}

func getCaseHandler(svc cases.CaseService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "get-case")
		defer func() { endSpan(span, err) }()

		log := logging.GetLoggerFromContext(ctx)

		caseID := chi.URLParam(r, "caseID")

		c, err := svc.GetByID(ctx, caseID)
		if err != nil {
			if errors.Is(err, database.ErrCaseNotFound) {
				writeJSON(w, http.StatusNotFound, apiResponse{Message: "error", Data: "case not found"})
				return
			}
			log.Error().Err(err).Str("case_id", caseID).Msg("failed to fetch case")
			writeJSON(w, http.StatusInternalServerError, apiResponse{Message: "error", Data: "internal server error"})
			return
		}

		writeJSON(w, http.StatusOK, apiResponse{Message: "success", Data: newCaseResponse(c)})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}
