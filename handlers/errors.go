package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"roadmap_tutor/dataset"
	"roadmap_tutor/lock"
	"roadmap_tutor/logger"
	"roadmap_tutor/models"
	"roadmap_tutor/recommender"
	"roadmap_tutor/services"
	"roadmap_tutor/utils"
)

var validate = validator.New()

// validationMessage 把校验错误转换为面向调用方的消息
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, field+" must be at least "+fe.Param()+" characters")
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return strings.Join(msgs, "; ")
}

func writeValidationError(w http.ResponseWriter, message string) {
	utils.WriteErrorResponse(w, http.StatusUnprocessableEntity, models.CodeInvalidParams, message)
}

// writeServiceError 按错误类型映射状态码和错误码
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		derr *recommender.DomainError
		perr *recommender.ProcessError
	)
	log := logger.With("request_id", requestID(r), "path", r.URL.Path)

	switch {
	case errors.As(err, &derr):
		utils.WriteDomainErrorResponse(w, derr.Message, derr.AvailableTags)

	case errors.Is(err, services.ErrMissingUser):
		utils.WriteErrorResponse(w, http.StatusUnauthorized, models.CodeUnauthorized, "")

	case errors.Is(err, dataset.ErrDatasetGeneration):
		log.Error("dataset generation failed", "error", err)
		utils.WriteErrorResponse(w, http.StatusInternalServerError, models.CodeDatasetGenError,
			"could not generate dataset: "+err.Error())

	case errors.As(err, &perr):
		status := http.StatusBadGateway
		switch perr.Kind {
		case recommender.KindTimeout:
			status = http.StatusGatewayTimeout
		case recommender.KindUnavailable:
			status = http.StatusServiceUnavailable
		}
		log.Error("recommender failed", "kind", perr.Kind.String(), "error", err)
		utils.WriteErrorResponse(w, status, models.CodeRecommenderError, "")

	case errors.Is(err, lock.ErrNotAcquired):
		log.Warn("refresh lock unavailable", "error", err)
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, models.CodeServerError, "service busy, try again later")

	case errors.Is(err, services.ErrNoStatistics):
		utils.WriteErrorResponse(w, http.StatusNotFound, models.CodeNoStatistics, "")

	case errors.Is(err, services.ErrTopicRequired):
		writeValidationError(w, err.Error())

	case errors.Is(err, services.ErrTopicNotFound):
		utils.WriteErrorResponse(w, http.StatusNotFound, models.CodeRoadmapNotFound, err.Error())

	default:
		utils.HandleServiceError(w, err, models.CodeRoadmapNotFound)
	}
}
