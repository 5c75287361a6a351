// Package api implements the Sprintline REST handlers.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sprintline/sprintline/activity"
	"github.com/sprintline/sprintline/project"
	"github.com/sprintline/sprintline/sprint"
	"github.com/sprintline/sprintline/store"
	"github.com/sprintline/sprintline/task"
	"github.com/sprintline/sprintline/user"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Projects project.Store
	Tasks    task.Store
	Sprints  sprint.Store
	Users    user.Store
	Feed     activity.Feed
	Logger   *slog.Logger
	Version  string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("GET /api/projects/{id}", h.getProject)

	mux.HandleFunc("GET /api/statuses", h.listStatuses)

	mux.HandleFunc("GET /api/tasks", h.listTasks)
	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("PUT /api/tasks/{id}/status", h.changeTaskStatus)
	mux.HandleFunc("GET /api/tasks/{id}/sla", h.getTaskSLA)

	mux.HandleFunc("GET /api/sprints", h.listSprints)
	mux.HandleFunc("POST /api/sprints", h.createSprint)
	mux.HandleFunc("PUT /api/sprints/{id}/activate", h.activateSprint)
	mux.HandleFunc("PUT /api/sprints/{id}/complete", h.completeSprint)

	mux.HandleFunc("GET /api/users", h.listUsers)
	mux.HandleFunc("POST /api/users", h.createUser)

	mux.HandleFunc("GET /api/dashboard", h.dashboard)
	mux.HandleFunc("GET /api/activity", h.listActivity)

	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps the store error taxonomy onto HTTP status codes.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// publish records an activity event, logging (not failing) on error.
func (h *Handlers) publish(r *http.Request, ev *activity.Event) {
	if h.Feed == nil {
		return
	}
	ev.Actor = Subject(r.Context())
	if err := h.Feed.Publish(r.Context(), ev); err != nil && h.Logger != nil {
		h.Logger.Error("publish activity", slog.Any("err", err))
	}
}

// --- Project handlers ---

func (h *Handlers) listProjects(w http.ResponseWriter, _ *http.Request) {
	projects, err := h.Projects.List()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []*project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := h.Projects.Create(&p); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeProjectCreated,
		Subject: p.Code,
		Summary: "project " + p.Code + " created",
	})
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	p, err := h.Projects.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// --- Status catalog ---

func (h *Handlers) listStatuses(w http.ResponseWriter, _ *http.Request) {
	statuses, err := h.Tasks.Statuses()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// --- Task handlers ---

// resolveTask accepts either a numeric task id or a task key like ENG-007.
func (h *Handlers) resolveTask(ref string) (*task.Task, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return h.Tasks.Get(id)
	}
	return h.Tasks.GetByKey(ref)
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := task.Filter{
		StatusName: q.Get("status"),
		AssigneeID: q.Get("assignee_id"),
	}

	if p := q.Get("project_id"); p != "" {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			filter.ProjectID = n
		}
	}
	if sp := q.Get("sprint_id"); sp != "" {
		if n, err := strconv.ParseInt(sp, 10, 64); err == nil {
			filter.SprintID = &n
		}
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			filter.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			filter.Offset = n
		}
	}

	tasks, err := h.Tasks.List(filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := h.Tasks.Create(&t); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeTaskCreated,
		Subject: t.Key,
		Summary: t.Key + " created: " + t.Title,
	})
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.resolveTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	existing, err := h.resolveTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	// Decode partial update over existing task
	id, key, statusID := existing.ID, existing.Key, existing.StatusID
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	// Identity and status are immutable here; status goes through the
	// lifecycle endpoint.
	existing.ID, existing.Key, existing.StatusID = id, key, statusID

	if err := h.Tasks.Update(existing); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeTaskUpdated,
		Subject: existing.Key,
		Summary: existing.Key + " updated",
	})
	writeJSON(w, http.StatusOK, existing)
}

// changeStatusRequest is the body accepted by PUT /api/tasks/{id}/status.
type changeStatusRequest struct {
	StatusID int64 `json:"status_id"`
}

func (h *Handlers) changeTaskStatus(w http.ResponseWriter, r *http.Request) {
	t, err := h.resolveTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	oldStatus := t.StatusName
	if err := h.Tasks.ChangeStatus(t.ID, req.StatusID); err != nil {
		writeStoreError(w, err)
		return
	}

	updated, err := h.Tasks.Get(t.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeStatusChanged,
		Subject: updated.Key,
		Summary: fmt.Sprintf("%s moved %s → %s", updated.Key, oldStatus, updated.StatusName),
		Metadata: map[string]string{
			"from": oldStatus,
			"to":   updated.StatusName,
		},
	})
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) getTaskSLA(w http.ResponseWriter, r *http.Request) {
	t, err := h.resolveTask(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	sla, err := h.Tasks.CurrentSLA(t.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sla)
}

// --- Sprint handlers ---

func (h *Handlers) listSprints(w http.ResponseWriter, _ *http.Request) {
	sprints, err := h.Sprints.List()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sprints == nil {
		sprints = []*sprint.Sprint{}
	}
	writeJSON(w, http.StatusOK, sprints)
}

func (h *Handlers) createSprint(w http.ResponseWriter, r *http.Request) {
	var sp sprint.Sprint
	if err := json.NewDecoder(r.Body).Decode(&sp); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if _, err := h.Sprints.Create(&sp); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeSprintCreated,
		Subject: sp.Name,
		Summary: "sprint " + sp.Name + " created",
	})
	writeJSON(w, http.StatusCreated, sp)
}

func (h *Handlers) activateSprint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sprint id")
		return
	}
	if err := h.Sprints.Activate(id); err != nil {
		writeStoreError(w, err)
		return
	}
	sp, err := h.Sprints.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeSprintActivated,
		Subject: sp.Name,
		Summary: "sprint " + sp.Name + " activated",
	})
	writeJSON(w, http.StatusOK, sp)
}

func (h *Handlers) completeSprint(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sprint id")
		return
	}
	if err := h.Sprints.Complete(id); err != nil {
		writeStoreError(w, err)
		return
	}
	sp, err := h.Sprints.Get(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeSprintCompleted,
		Subject: sp.Name,
		Summary: "sprint " + sp.Name + " completed",
	})
	writeJSON(w, http.StatusOK, sp)
}

// --- User handlers ---

func (h *Handlers) listUsers(w http.ResponseWriter, _ *http.Request) {
	users, err := h.Users.List()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if users == nil {
		users = []*user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// createUserRequest is the body accepted by POST /api/users.
type createUserRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	u := &user.User{Username: req.Username, DisplayName: req.DisplayName}
	if err := h.Users.Create(u, req.Password); err != nil {
		writeStoreError(w, err)
		return
	}
	h.publish(r, &activity.Event{
		Type:    activity.TypeUserCreated,
		Subject: u.Username,
		Summary: "user " + u.Username + " created",
	})
	writeJSON(w, http.StatusCreated, u)
}

// --- Dashboard ---

// dashboardView is the aggregate payload for the admin dashboard.
type dashboardView struct {
	TasksByStatus  map[string]int `json:"tasks_by_status"`
	TotalTasks     int            `json:"total_tasks"`
	ActiveSprint   *sprint.Sprint `json:"active_sprint,omitempty"`
	AccruedMinutes int64          `json:"accrued_minutes"`
}

func (h *Handlers) dashboard(w http.ResponseWriter, _ *http.Request) {
	counts, err := h.Tasks.StatusCounts()
	if err != nil {
		writeStoreError(w, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	accrued, err := h.Tasks.TotalAccruedMinutes()
	if err != nil {
		writeStoreError(w, err)
		return
	}

	view := dashboardView{
		TasksByStatus:  counts,
		TotalTasks:     total,
		AccruedMinutes: accrued,
	}
	if active, err := h.Sprints.Active(); err == nil {
		view.ActiveSprint = active
	} else if !errors.Is(err, store.ErrNotFound) {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// --- Activity ---

func (h *Handlers) listActivity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	events, err := h.Feed.History(limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if events == nil {
		events = []*activity.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
