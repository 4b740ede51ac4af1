package services

import (
	"context"
	"strings"
	"time"

	"propdesk/internal/domain/attachment"
	"propdesk/internal/metrics"
	"propdesk/pkg/logger"

	"github.com/imroc/req/v3"
	"github.com/samber/lo"
)

const noAttachmentsText = "Nenhum anexo encontrado ou erro na busca."

const (
	webhookAttachments = "attachments"
	webhookSubmission  = "submission"
)

type AttachmentLister interface {
	ListByProject(ctx context.Context, projectID string) ([]attachment.Attachment, error)
}

// Notifier tells the downstream automation that a project's attachments or
// submission state changed. Implementations never fail the caller.
type Notifier interface {
	NotifyAttachments(ctx context.Context, projectID string)
	NotifySubmission(ctx context.Context, userID, projectID string)
}

type WebhookConfig struct {
	AttachmentsURL string
	SubmissionURL  string
	Timeout        time.Duration
}

type AttachmentsPayload struct {
	ProjectID       string   `json:"project_id"`
	AttachmentIDs   []string `json:"attachment_ids"`
	AttachmentNames []string `json:"attachment_names"`
	Count           int      `json:"count"`
}

type SubmissionPayload struct {
	UserID          string `json:"user_id"`
	ProjectID       string `json:"project_id"`
	NomeDosArquivos string `json:"nome_dos_arquivos"`
}

type WebhookNotifier struct {
	cfg     WebhookConfig
	lister  AttachmentLister
	client  *req.Client
	metrics *metrics.Recorder
	log     *logger.Logger
}

func NewWebhookNotifier(cfg WebhookConfig, lister AttachmentLister, rec *metrics.Recorder, l *logger.Logger) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if l == nil {
		l = logger.Nop()
	}
	client := req.C().
		SetTimeout(cfg.Timeout).
		SetUserAgent("propdesk-webhook/1.0").
		SetCommonHeader("Content-Type", "application/json")
	return &WebhookNotifier{cfg: cfg, lister: lister, client: client, metrics: rec, log: l}
}

func (n *WebhookNotifier) NotifyAttachments(ctx context.Context, projectID string) {
	log := n.log.Ctx(ctx)
	if n.cfg.AttachmentsURL == "" {
		log.Debugf("attachments webhook disabled, skipping project %s", projectID)
		n.metrics.RecordWebhook(webhookAttachments, "skipped")
		return
	}

	items, err := n.lister.ListByProject(ctx, projectID)
	if err != nil {
		log.Errorf("attachments webhook: list attachments for project %s: %v", projectID, err)
		n.metrics.RecordWebhook(webhookAttachments, "error")
		return
	}

	payload := AttachmentsPayload{
		ProjectID:       projectID,
		AttachmentIDs:   lo.Map(items, func(a attachment.Attachment, _ int) string { return a.ID }),
		AttachmentNames: lo.Map(items, func(a attachment.Attachment, _ int) string { return a.FileName }),
		Count:           len(items),
	}
	n.post(ctx, webhookAttachments, n.cfg.AttachmentsURL, payload)
}

func (n *WebhookNotifier) NotifySubmission(ctx context.Context, userID, projectID string) {
	log := n.log.Ctx(ctx)
	if n.cfg.SubmissionURL == "" {
		log.Debugf("submission webhook disabled, skipping project %s", projectID)
		n.metrics.RecordWebhook(webhookSubmission, "skipped")
		return
	}

	names := noAttachmentsText
	items, err := n.lister.ListByProject(ctx, projectID)
	if err != nil {
		log.Warnf("submission webhook: list attachments for project %s: %v", projectID, err)
	} else {
		names = strings.Join(lo.Map(items, func(a attachment.Attachment, _ int) string { return a.FileName }), ", ")
	}

	n.post(ctx, webhookSubmission, n.cfg.SubmissionURL, SubmissionPayload{
		UserID:          userID,
		ProjectID:       projectID,
		NomeDosArquivos: names,
	})
}

func (n *WebhookNotifier) post(ctx context.Context, kind, url string, payload interface{}) {
	log := n.log.Ctx(ctx)
	resp, err := n.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(payload).
		Post(url)
	if err != nil {
		log.Errorf("%s webhook: request failed: %v", kind, err)
		n.metrics.RecordWebhook(kind, "error")
		return
	}
	if !resp.IsSuccessState() {
		log.Errorf("%s webhook: status %d: %s", kind, resp.StatusCode, resp.String())
		n.metrics.RecordWebhook(kind, "error")
		return
	}
	log.Infof("%s webhook delivered: status %d", kind, resp.StatusCode)
	n.metrics.RecordWebhook(kind, "ok")
}
