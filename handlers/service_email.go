package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sendhub/sendhub/middleware"
	"github.com/sendhub/sendhub/models"
	"github.com/sendhub/sendhub/queue"
	"github.com/sendhub/sendhub/service"
	"github.com/sendhub/sendhub/utils"
)

// EmailHandler serves the authenticated service API: send, send-group,
// template/group lookups and queue status. The authorized tenant comes from
// the APIKeyAuth middleware; every send is enqueued, never delivered inline.
type EmailHandler struct {
	Store Store
	Queue queue.Queue
}

type sendRequest struct {
	TemplateName string                 `json:"templateName"`
	To           string                 `json:"to"`
	Data         map[string]interface{} `json:"data"`
}

type sendGroupRequest struct {
	TemplateName string                 `json:"templateName"`
	GroupName    string                 `json:"groupName"`
	Data         map[string]interface{} `json:"data"`
}

// Send queues a single email. Responds "queued", not "delivered": the job ID
// is returned immediately and a worker performs the send asynchronously.
func (h *EmailHandler) Send(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.APIUserFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.TemplateName == "" || req.To == "" {
		utils.Error(w, http.StatusBadRequest, "Required fields missing: templateName and to are required", nil)
		return
	}

	usage, err := service.CheckEmailUsage(r.Context(), h.Store, user, 1)
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	tmpl, err := h.Store.TemplateByName(r.Context(), user.ID, req.TemplateName)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if tmpl == nil {
		utils.Error(w, http.StatusNotFound, "Template not found", nil)
		return
	}

	if err := h.requireSmtpConfig(r, user); err != nil {
		utils.HandleError(w, err)
		return
	}

	subject, html := renderTemplate(tmpl, req.Data)
	job := &queue.DispatchJob{
		UserID:     user.ID.Hex(),
		To:         req.To,
		Subject:    subject,
		HTML:       html,
		Type:       tmpl.Type,
		TemplateID: tmpl.ID.Hex(),
		Priority:   queue.PrioritySingle,
	}
	jobID, err := h.Queue.Enqueue(r.Context(), job)
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	utils.Success(w, http.StatusOK, "Email queued successfully", map[string]interface{}{
		"jobId": jobID,
		"emailQueued": map[string]string{
			"to":           req.To,
			"subject":      subject,
			"templateName": tmpl.Name,
		},
		"usage": service.UsageInfo{
			Sent:      usage.Sent + 1,
			Limit:     usage.Limit,
			Remaining: usage.Remaining,
		},
	})
}

// SendGroup fans a group send out into one queued job per recipient, so one
// recipient's permanent failure never blocks the rest.
func (h *EmailHandler) SendGroup(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.APIUserFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	var req sendGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if req.TemplateName == "" || req.GroupName == "" {
		utils.Error(w, http.StatusBadRequest, "Required fields missing: templateName and groupName are required", nil)
		return
	}

	tmpl, err := h.Store.TemplateByName(r.Context(), user.ID, req.TemplateName)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if tmpl == nil {
		utils.Error(w, http.StatusNotFound, "Template not found", nil)
		return
	}

	group, err := h.Store.GroupByName(r.Context(), user.ID, req.GroupName)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	if group == nil {
		utils.Error(w, http.StatusNotFound, "Contact group not found", nil)
		return
	}
	if len(group.Emails) == 0 {
		utils.Error(w, http.StatusBadRequest, "The contact group is empty", nil)
		return
	}

	usage, err := service.CheckEmailUsage(r.Context(), h.Store, user, len(group.Emails))
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	if err := h.requireSmtpConfig(r, user); err != nil {
		utils.HandleError(w, err)
		return
	}

	subject, html := renderTemplate(tmpl, req.Data)
	jobIDs := make([]string, 0, len(group.Emails))
	for _, email := range group.Emails {
		job := &queue.DispatchJob{
			UserID:     user.ID.Hex(),
			To:         email,
			Subject:    subject,
			HTML:       html,
			Type:       tmpl.Type,
			TemplateID: tmpl.ID.Hex(),
			GroupID:    group.ID.Hex(),
			Priority:   queue.PriorityGroup,
		}
		jobID, err := h.Queue.Enqueue(r.Context(), job)
		if err != nil {
			utils.HandleError(w, err)
			return
		}
		jobIDs = append(jobIDs, jobID)
	}

	utils.Success(w, http.StatusOK, "Group email queued", map[string]interface{}{
		"jobIds":       jobIDs,
		"emailsQueued": len(jobIDs),
		"templateName": tmpl.Name,
		"groupName":    group.Name,
		"usage": service.UsageInfo{
			Sent:      usage.Sent + len(jobIDs),
			Limit:     usage.Limit,
			Remaining: usage.Remaining,
		},
	})
}

// Templates returns one template by ?name, or a page of the tenant's templates.
func (h *EmailHandler) Templates(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.APIUserFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	if name := r.URL.Query().Get("name"); name != "" {
		tmpl, err := h.Store.TemplateByName(r.Context(), user.ID, name)
		if err != nil {
			utils.HandleError(w, err)
			return
		}
		if tmpl == nil {
			utils.Error(w, http.StatusNotFound, "Template not found", nil)
			return
		}
		utils.Success(w, http.StatusOK, "Template retrieved successfully", map[string]interface{}{
			"template": tmpl,
			"usage":    h.usageSnapshot(r, user),
		})
		return
	}

	page, limit := utils.ParsePage(r, 50)
	templates, total, err := h.Store.TemplatesByUser(r.Context(), user.ID, page, limit)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	utils.Success(w, http.StatusOK, "Templates retrieved successfully", map[string]interface{}{
		"templates":  templates,
		"pagination": utils.NewPagination(total, page, limit),
		"usage":      h.usageSnapshot(r, user),
	})
}

type groupSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	EmailCount int    `json:"emailCount"`
}

// Groups lists the tenant's contact groups with recipient counts; the
// addresses themselves are not exposed on the service API.
func (h *EmailHandler) Groups(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.APIUserFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	page, limit := utils.ParsePage(r, 50)
	groups, total, err := h.Store.GroupsByUser(r.Context(), user.ID, page, limit)
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	summaries := make([]groupSummary, 0, len(groups))
	for _, g := range groups {
		summaries = append(summaries, groupSummary{
			ID:         g.ID.Hex(),
			Name:       g.Name,
			EmailCount: len(g.Emails),
		})
	}
	utils.Success(w, http.StatusOK, "Contact groups retrieved successfully", map[string]interface{}{
		"groups":     summaries,
		"pagination": utils.NewPagination(total, page, limit),
		"usage":      h.usageSnapshot(r, user),
	})
}

type queueJobView struct {
	ID        string            `json:"id"`
	State     queue.State       `json:"state"`
	CreatedAt string            `json:"createdAt"`
	Data      map[string]string `json:"data"`
}

// QueueStatus reports global queue counts plus the tenant's own pending jobs.
func (h *EmailHandler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.APIUserFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
		return
	}

	counts, err := h.Queue.Counts(r.Context())
	if err != nil {
		utils.HandleError(w, err)
		return
	}
	pending, err := h.Queue.Jobs(r.Context(), queue.StateWaiting, queue.StateActive, queue.StateDelayed)
	if err != nil {
		utils.HandleError(w, err)
		return
	}

	userHex := user.ID.Hex()
	views := make([]queueJobView, 0)
	for _, info := range pending {
		if info.Job.UserID != userHex {
			continue
		}
		views = append(views, queueJobView{
			ID:        info.Job.ID,
			State:     info.State,
			CreatedAt: info.Job.EnqueuedAt.UTC().Format(time.RFC3339),
			Data: map[string]string{
				"to":      info.Job.To,
				"subject": info.Job.Subject,
			},
		})
	}

	utils.Success(w, http.StatusOK, "Queue status retrieved successfully", map[string]interface{}{
		"globalStats": counts,
		"userStats": map[string]interface{}{
			"pendingJobs": len(views),
			"jobs":        views,
		},
	})
}

// requireSmtpConfig verifies the tenant has a resolvable SMTP config before
// anything is queued, so jobs do not fail predictably in the worker.
func (h *EmailHandler) requireSmtpConfig(r *http.Request, user *models.User) error {
	if user.Smtp.IsZero() {
		return utils.NewNotFound("SMTP configuration not found")
	}
	cfg, err := h.Store.SmtpConfigByID(r.Context(), user.Smtp)
	if err != nil {
		return err
	}
	if cfg == nil {
		return utils.NewNotFound("SMTP configuration not found")
	}
	return nil
}

// usageSnapshot fetches current counters for read-only endpoints. Failures
// degrade to an error marker instead of failing the whole request.
func (h *EmailHandler) usageSnapshot(r *http.Request, user *models.User) interface{} {
	usage, err := service.CheckEmailUsage(r.Context(), h.Store, user, 0)
	if err != nil {
		return map[string]string{"error": "Could not retrieve usage information"}
	}
	return usage
}

// renderTemplate resolves subject and body: static templates pass through
// verbatim, dynamic ones run both through placeholder substitution.
func renderTemplate(tmpl *models.EmailTemplate, data map[string]interface{}) (subject, html string) {
	if tmpl.Type != models.TemplateDynamic {
		return tmpl.Subject, tmpl.Body
	}
	flat := make(map[string]string, len(data))
	for k, v := range data {
		flat[k] = fmt.Sprint(v)
	}
	return service.Render(tmpl.Subject, flat), service.Render(tmpl.Body, flat)
}
