package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stylomail/internal/config"
	"stylomail/internal/k8s"

	"github.com/labstack/echo/v4"
)

// TriggerImportJobResponse reports the outcome of scheduling an import job.
type TriggerImportJobResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	JobName string `json:"job_name,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ImportJobStatus is a trimmed view of a Kubernetes Job status.
type ImportJobStatus struct {
	JobName        string  `json:"job_name"`
	Status         string  `json:"status"`
	Active         int32   `json:"active"`
	Succeeded      int32   `json:"succeeded"`
	Failed         int32   `json:"failed"`
	StartTime      *string `json:"start_time,omitempty"`
	CompletionTime *string `json:"completion_time,omitempty"`
}

// TriggerImportJobHandler schedules a Kubernetes Job that runs the
// bulk email import against the mounted email volume
// @Summary Trigger email import job
// @Tags admin
// @Produce json
// @Success 200 {object} TriggerImportJobResponse
// @Failure 500 {object} TriggerImportJobResponse
// @Router /api/admin/import-job [post]
func TriggerImportJobHandler(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		jobName := fmt.Sprintf("email-import-%d", time.Now().Unix())

		k8sClient, err := k8s.NewClient("")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, TriggerImportJobResponse{
				Error: fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
		defer cancel()

		if err := k8sClient.CreateEmailImportJob(ctx, jobName, cfg.EmailImportImage, cfg.EmailImportPath); err != nil {
			return c.JSON(http.StatusInternalServerError, TriggerImportJobResponse{
				Error: fmt.Sprintf("Failed to create job: %v", err),
			})
		}

		return c.JSON(http.StatusOK, TriggerImportJobResponse{
			Success: true,
			Message: "Email import job scheduled",
			JobName: jobName,
		})
	}
}

// ImportJobStatusHandler reports the status of an import job
// @Summary Get import job status
// @Tags admin
// @Produce json
// @Param name path string true "Job name"
// @Success 200 {object} ImportJobStatus
// @Failure 404 {object} TriggerImportJobResponse
// @Router /api/admin/import-job/{name} [get]
func ImportJobStatusHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobName := c.Param("name")

		k8sClient, err := k8s.NewClient("")
		if err != nil {
			return c.JSON(http.StatusInternalServerError, TriggerImportJobResponse{
				Error: fmt.Sprintf("Failed to create Kubernetes client: %v", err),
			})
		}

		ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
		defer cancel()

		job, err := k8sClient.GetJobStatus(ctx, jobName)
		if err != nil {
			return c.JSON(http.StatusNotFound, TriggerImportJobResponse{
				Error: fmt.Sprintf("Job not found: %v", err),
			})
		}

		status := ImportJobStatus{
			JobName:   jobName,
			Status:    "running",
			Active:    job.Status.Active,
			Succeeded: job.Status.Succeeded,
			Failed:    job.Status.Failed,
		}
		if job.Status.Succeeded > 0 {
			status.Status = "succeeded"
		} else if job.Status.Failed > 0 {
			status.Status = "failed"
		}
		if job.Status.StartTime != nil {
			start := job.Status.StartTime.Format(time.RFC3339)
			status.StartTime = &start
		}
		if job.Status.CompletionTime != nil {
			completion := job.Status.CompletionTime.Format(time.RFC3339)
			status.CompletionTime = &completion
		}

		return c.JSON(http.StatusOK, status)
	}
}
