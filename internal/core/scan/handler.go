package scan

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"foodtube/internal/core/job"
	"foodtube/internal/logger"
	"foodtube/internal/utils/httputil"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const streamKeepAlive = 15 * time.Second

// Watcher streams job projections; job.Service implements it.
type Watcher interface {
	Watch(ctx context.Context, jobID string) (<-chan job.ScanJob, error)
}

type Handler struct {
	svc     *Service
	watcher Watcher
	log     *logger.Logger
}

func NewHandler(svc *Service, watcher Watcher) *Handler {
	return &Handler{svc: svc, watcher: watcher, log: logger.New("ScanHandler")}
}

type createRequest struct {
	SourceType job.SourceType `json:"sourceType"`
	PlaylistID string         `json:"playlistId"`
}

type createResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"jobId"`
}

// HandleCreate serves POST /v1/scan.
func (h *Handler) HandleCreate(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, "invalid body")
	}
	if !req.SourceType.Valid() {
		return httputil.Fail(c, fiber.StatusBadRequest, "sourceType must be liked or playlist")
	}
	if req.SourceType == job.SourcePlaylist && req.PlaylistID == "" {
		return httputil.Fail(c, fiber.StatusBadRequest, job.ErrMissingPlaylist.Error())
	}

	userID := httputil.UserID(c)
	if _, err := h.svc.tokens.GetAccessToken(c.UserContext(), userID); err != nil {
		return httputil.Fail(c, fiber.StatusUnauthorized, "no youtube access token, please sign in again")
	}

	j, err := h.svc.StartScan(c.UserContext(), userID, req.SourceType, req.PlaylistID)
	if err != nil {
		var active *job.ActiveJobError
		switch {
		case errors.As(err, &active):
			return c.Status(fiber.StatusConflict).JSON(httputil.ErrorResponse{
				Success: false,
				Error:   job.ErrActiveJob.Error(),
				JobID:   active.JobID,
			})
		case errors.Is(err, job.ErrInvalidSource), errors.Is(err, job.ErrMissingPlaylist):
			return httputil.Fail(c, fiber.StatusBadRequest, err.Error())
		}
		h.log.LogErrorf("start scan for %s: %v", userID, err)
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not start scan")
	}
	return c.JSON(createResponse{Success: true, JobID: j.ID})
}

// ownedJob loads the job and hides other users' jobs as missing.
func (h *Handler) ownedJob(c *fiber.Ctx) (*job.ScanJob, error) {
	j, err := h.svc.jobs.GetStatus(c.UserContext(), c.Params("jobId"))
	if err != nil {
		return nil, err
	}
	if j.UserID != httputil.UserID(c) {
		return nil, job.ErrNotFound
	}
	return j, nil
}

// HandleStatus serves GET /v1/scan/:jobId.
func (h *Handler) HandleStatus(c *fiber.Ctx) error {
	j, err := h.ownedJob(c)
	if errors.Is(err, job.ErrNotFound) {
		return httputil.Fail(c, fiber.StatusNotFound, "scan job not found")
	}
	if err != nil {
		h.log.LogErrorf("load scan job: %v", err)
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not load scan job")
	}
	return c.JSON(j)
}

// HandleEvents serves GET /v1/scan/:jobId/events as Server-Sent Events, one
// "status" event per stored update, ending after a terminal status.
func (h *Handler) HandleEvents(c *fiber.Ctx) error {
	if _, err := h.ownedJob(c); err != nil {
		if errors.Is(err, job.ErrNotFound) {
			return httputil.Fail(c, fiber.StatusNotFound, "scan job not found")
		}
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not load scan job")
	}

	// the stream outlives this handler call, so it cannot use the request context
	ctx, cancel := context.WithTimeout(context.Background(), h.svc.opts.ScanTimeout)
	updates, err := h.watcher.Watch(ctx, c.Params("jobId"))
	if err != nil {
		cancel()
		h.log.LogErrorf("watch scan job: %v", err)
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not watch scan job")
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		ticker := time.NewTicker(streamKeepAlive)
		defer ticker.Stop()

		for {
			select {
			case j, ok := <-updates:
				if !ok {
					return
				}
				data, err := json.Marshal(j)
				if err != nil {
					return
				}
				fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}
			if err := w.Flush(); err != nil {
				// client went away
				return
			}
		}
	}))
	return nil
}
