package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/usps-dataeng/versionone-dashboard/domain"
	"github.com/usps-dataeng/versionone-dashboard/export"
	"github.com/usps-dataeng/versionone-dashboard/hours"
	"github.com/usps-dataeng/versionone-dashboard/ingest"
	"github.com/usps-dataeng/versionone-dashboard/pipeline"
	"github.com/usps-dataeng/versionone-dashboard/vmopt"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, store Storage, auth Authenticator, deduper Deduper, logger *log.Logger) {
	e.GET("/api/roster", getRoster(store, auth))
	e.POST("/api/reports/hours", postHoursReport(store, auth, logger))
	e.POST("/api/reports/vms", postVMReport(auth))
	e.GET("/api/snapshots/:name", getSnapshot(store, auth))
	e.GET("/api/snapshots/:name/export", exportSnapshot(store, auth))
	e.POST("/api/commands", postCommands(store, auth, deduper))
	e.GET("/healthz", healthz(store))

	initCommandSender(store, deduper, logger)
}

type healthchecker interface {
	Healthcheck(ctx context.Context) error
}

func healthz(store Storage) echo.HandlerFunc {
	return func(c echo.Context) error {
		if hc, ok := store.(healthchecker); ok {
			if err := hc.Healthcheck(c.Request().Context()); err != nil {
				return c.String(http.StatusServiceUnavailable, err.Error())
			}
		}
		return c.NoContent(http.StatusOK)
	}
}

func getRoster(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		entries, err := store.FetchRoster(ctx)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, entries)
	}
}

// postHoursReport ingests a task tracker CSV export, reconciles it against
// the contractor roster and returns the derived tasks plus the dashboard
// summaries. With ?snapshot=<name> the result is merged into the stored
// snapshot, keeping the newest record per task ID.
func postHoursReport(store Storage, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newReportRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		parseStart := time.Now()
		rows, parseErr := ingest.ReadCSV(io.LimitReader(c.Request().Body, postReportMaxSize))
		metrics.ObserveParse(time.Since(parseStart))
		if parseErr != nil {
			metrics.SetErrorStage("parse_csv")
			err = c.String(http.StatusBadRequest, "invalid csv body")
			return err
		}
		metrics.SetRowsReceived(len(rows))

		entries, fetchErr := store.FetchRoster(ctx)
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			c.Logger().Error(fetchErr)
			err = c.String(http.StatusInternalServerError, fetchErr.Error())
			return err
		}
		roster, _ := domain.NewRoster(entries)

		pipelineStart := time.Now()
		tasks, verrs := hours.Normalize(rows)
		joined, unmatched := hours.JoinRoster(tasks, roster)
		derived := hours.DeriveMetrics(joined)
		metrics.ObservePipeline(time.Since(pipelineStart))
		metrics.SetRowsRejected(len(verrs))
		metrics.SetUnmatchedOwners(unmatched)

		snapshot := c.QueryParam("snapshot")
		if snapshot != "" {
			existing, snapErr := store.FetchSnapshot(ctx, snapshot)
			if snapErr != nil {
				metrics.SetErrorStage("storage")
				c.Logger().Error(snapErr)
				err = c.String(http.StatusInternalServerError, snapErr.Error())
				return err
			}
			derived = hours.MergeSnapshots(existing, derived)
			if saveErr := store.SaveSnapshot(ctx, snapshot, derived); saveErr != nil {
				metrics.SetErrorStage("storage")
				c.Logger().Error(saveErr)
				err = c.String(http.StatusInternalServerError, saveErr.Error())
				return err
			}
			metrics.SetSnapshotSaved(true)
		}

		resp := hoursReportResponse{
			ReportID:         uuid.NewString(),
			Snapshot:         snapshot,
			Tasks:            derived,
			RowsReceived:     len(rows),
			RowsRejected:     len(verrs),
			UnmatchedOwners:  unmatched,
			ValidationErrors: verrs,
			Overview:         hours.Summarize(derived),
			BySprint:         hours.BySprint(derived),
			ByGroup:          hours.ByContractorGroup(derived),
			ByStatus:         hours.ByStatus(derived),
			Accountability:   hours.AccountabilityStats(hours.ByOwner(derived, roster)),
			ProjectTotals:    hours.ProjectTotals(derived),
		}

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, resp)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

// postVMReport ingests the VM inventory and its reference feeds as a
// multipart upload (parts: vms, sizes, prices, metrics) and returns the
// optimization analysis. Only the vms part is required.
func postVMReport(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		vmRows, ok, err := readCSVPart(c, "vms")
		if err != nil {
			return c.String(http.StatusBadRequest, "invalid vms part")
		}
		if !ok {
			return c.String(http.StatusBadRequest, "missing vms part")
		}
		vms, verrs := vmopt.NormalizeVMs(vmRows)

		if sizeRows, ok, err := readCSVPart(c, "sizes"); err != nil {
			return c.String(http.StatusBadRequest, "invalid sizes part")
		} else if ok {
			costs, errs := vmopt.NormalizeSizeCosts(sizeRows)
			verrs = append(verrs, errs...)
			vms, _ = vmopt.JoinSizeCosts(vms, costs)
		}

		if priceRows, ok, err := readCSVPart(c, "prices"); err != nil {
			return c.String(http.StatusBadRequest, "invalid prices part")
		} else if ok {
			prices, errs := vmopt.NormalizePrices(priceRows)
			verrs = append(verrs, errs...)
			vms, _ = vmopt.JoinPrices(vms, prices)
		}

		if utilRows, ok, err := readCSVPart(c, "metrics"); err != nil {
			return c.String(http.StatusBadRequest, "invalid metrics part")
		} else if ok {
			utils, errs := vmopt.NormalizeUtilization(utilRows)
			verrs = append(verrs, errs...)
			vms, _ = vmopt.JoinUtilization(vms, utils)
		}

		opts := vmopt.Analyze(vms)
		candidates := vmopt.Candidates(opts)
		vmopt.SortByPriority(candidates)

		return c.JSON(http.StatusOK, vmReportResponse{
			ReportID:         uuid.NewString(),
			VMsReceived:      len(vms),
			RowsRejected:     len(verrs),
			ValidationErrors: verrs,
			Summary:          vmopt.Summarize(opts),
			Clusters:         vmopt.ByCluster(opts),
			Candidates:       candidates,
		})
	}
}

func readCSVPart(c echo.Context, name string) ([]pipeline.Row, bool, error) {
	fh, err := c.FormFile(name)
	if err != nil {
		// Absent part, or not a multipart request at all.
		return nil, false, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, true, err
	}
	defer f.Close()
	rows, err := ingest.ReadCSV(io.LimitReader(f, postReportMaxSize))
	if err != nil {
		return nil, true, err
	}
	return rows, true, nil
}

// getSnapshot returns a stored snapshot with its dashboard views. An optional
// ?sprint=N narrows the task list and the completed view to one sprint.
func getSnapshot(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		name := c.Param("name")
		tasks, err := store.FetchSnapshot(ctx, name)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}

		var sprint *int
		if raw := c.QueryParam("sprint"); raw != "" {
			n, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return c.String(http.StatusBadRequest, "invalid sprint")
			}
			sprint = &n
		}

		visible := tasks
		if sprint != nil {
			visible = hours.SprintTasks(tasks, *sprint)
		}

		return c.JSON(http.StatusOK, snapshotResponse{
			Snapshot:        name,
			Sprint:          sprint,
			Tasks:           visible,
			Overview:        hours.Summarize(visible),
			ProjectBySprint: hours.ProjectBySprint(tasks),
			CompletedTasks:  hours.CompletedTasks(tasks, sprint),
			BacklogTasks:    hours.BacklogTasks(tasks),
			TopTasks:        hours.TopByEstimated(visible, 10),
		})
	}
}

func exportSnapshot(store Storage, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		name := c.Param("name")
		tasks, err := store.FetchSnapshot(ctx, name)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.csv"`)
		c.Response().WriteHeader(http.StatusOK)
		return export.WriteTasksCSV(c.Response(), tasks)
	}
}

func finalizeCommands(cmds []domain.Command) []string {
	keys := make([]string, len(cmds))
	for i := range cmds {
		cmds[i].Timestamp = nextCommandStamp()
		if cmds[i].IdempotencyKey == "" {
			cmds[i].IdempotencyKey = strconv.FormatInt(cmds[i].Timestamp, 36)
		}
		cmds[i].ID = cmds[i].IdempotencyKey
		keys[i] = cmds[i].IdempotencyKey
	}
	return keys
}

func postCommands(store Storage, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, postCommandMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		cmds := make([]domain.Command, 0, 4)
		if err := dec.Decode(&cmds); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		keys := finalizeCommands(cmds)

		fresh := cmds
		var added []string
		if deduper != nil {
			ctx := c.Request().Context()
			results, dedupeErr := deduper.AddMany(ctx, userID, keys)
			if dedupeErr != nil {
				rollbackKeys(ctx, deduper, userID, keys, results)
				c.Logger().Errorf("dedupe failed: %v", dedupeErr)
				return c.String(http.StatusInternalServerError, "failed to enqueue commands")
			}
			fresh = fresh[:0]
			for i, newlyAdded := range results {
				if newlyAdded {
					fresh = append(fresh, cmds[i])
					added = append(added, keys[i])
				}
			}
			if len(fresh) == 0 {
				return c.JSON(http.StatusAccepted, postCommandResponse{IdempotencyKeys: keys})
			}
		}

		job := enqueueJob{
			userID: userID,
			cmds:   fresh,
			added:  added,
		}

		if tryEnqueueJob(job) {
			return c.JSON(http.StatusAccepted, postCommandResponse{IdempotencyKeys: keys})
		}

		if globalLog != nil {
			globalLog.Warn("enqueue buffer saturated; processing inline")
		}

		enqueueCtx, cancel := context.WithTimeout(bg, enqueueTimeout)
		enqueueErr := store.EnqueueCommands(enqueueCtx, userID, job.cmds)
		cancel()

		if enqueueErr != nil {
			if deduper != nil {
				for _, k := range added {
					if rerr := deduper.Remove(bg, userID, k); rerr != nil {
						c.Logger().Errorf("dedupe rollback failed: %v", rerr)
					}
				}
			}
			c.Logger().Errorf("enqueue inline failed: %v", enqueueErr)
			return c.String(http.StatusInternalServerError, "failed to enqueue commands")
		}

		return c.JSON(http.StatusAccepted, postCommandResponse{IdempotencyKeys: keys})
	}
}

func rollbackKeys(ctx context.Context, deduper Deduper, userID string, keys []string, results []bool) {
	for i, ok := range results {
		if !ok || i >= len(keys) {
			continue
		}
		_ = deduper.Remove(ctx, userID, keys[i])
	}
}
