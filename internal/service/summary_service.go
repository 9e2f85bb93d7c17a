package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carebridge/carebridge-api/internal/config"
	"github.com/carebridge/carebridge-api/internal/domain/report"
	"github.com/carebridge/carebridge-api/pkg/cache"
	"github.com/carebridge/carebridge-api/pkg/metrics"
	"github.com/carebridge/carebridge-api/pkg/sanitize"
)

var (
	ErrNoReportsSelected = errors.New("at least one report must be selected for summarization")
	ErrWebhookFailed     = errors.New("summarization service returned an error")
	ErrEmptySummary      = errors.New("summarization service returned no usable content")
)

// SummaryCache is the shared cache surface the orchestrator needs. Keyed by
// patient and the exact report selection, so an unchanged selection is a hit.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type SummarizeCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	ReportIDs []uuid.UUID

	// Refresh invalidates any cached summary for this selection first.
	Refresh bool
}

type SummaryResult struct {
	Summary       string    `json:"summary"`
	ExtractedText string    `json:"extracted_text,omitempty"`
	FromCache     bool      `json:"from_cache"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// webhookReport is one entry in the payload sent to the summarization
// webhook. Reports whose presign fails are dropped rather than sent with a
// dead URL.
type webhookReport struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	FileURL    string    `json:"file_url"`
	UploadDate time.Time `json:"upload_date"`
	FileSize   int64     `json:"file_size"`
	FileType   string    `json:"file_type"`
}

type webhookRequest struct {
	Reports   []webhookReport `json:"reports"`
	PatientID string          `json:"patient_id"`
	DoctorID  string          `json:"doctor_id"`
	Timestamp time.Time       `json:"timestamp"`
	Options   webhookOptions  `json:"options"`
}

type webhookOptions struct {
	OutputFormat string `json:"output_format"`
	Chunked      bool   `json:"chunked"`
}

type webhookResponse struct {
	Summary       string `json:"summary"`
	Output        string `json:"output"`
	ExtractedText string `json:"extracted_text"`
}

func (r *webhookResponse) text() string {
	if strings.TrimSpace(r.Summary) != "" {
		return r.Summary
	}
	return r.Output
}

// SummaryService orchestrates summarization of a report selection: presign
// the selected reports, call the external webhook, sanitize the result, and
// cache it keyed by the exact selection.
type SummaryService struct {
	reportRepo report.Repository
	store      BlobStore
	cache      SummaryCache
	httpClient *http.Client
	cfg        config.AISummaryConfig
	auditSvc   *AuditService
	metrics    *metrics.Collector
	log        *zap.Logger
}

func NewSummaryService(reportRepo report.Repository, store BlobStore, summaryCache SummaryCache, httpClient *http.Client, cfg config.AISummaryConfig, auditSvc *AuditService, collector *metrics.Collector, log *zap.Logger) *SummaryService {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &SummaryService{
		reportRepo: reportRepo,
		store:      store,
		cache:      summaryCache,
		httpClient: httpClient,
		cfg:        cfg,
		auditSvc:   auditSvc,
		metrics:    collector,
		log:        log,
	}
}

// Summarize returns a sanitized HTML summary of the selected reports. An
// unchanged selection is served from cache without touching the webhook;
// Refresh invalidates first. Webhook failures are returned as-is with no
// retry.
func (s *SummaryService) Summarize(ctx context.Context, cmd *SummarizeCommand, callerID uuid.UUID, callerRole string, ip string) (*SummaryResult, error) {
	if callerRole != "doctor" && callerRole != "admin" {
		return nil, ErrForbidden
	}
	if len(cmd.ReportIDs) == 0 {
		return nil, ErrNoReportsSelected
	}

	key := cacheKey(cmd.PatientID, cmd.ReportIDs)
	extractedKey := key + "_extracted"

	if cmd.Refresh {
		if err := s.cache.Delete(ctx, key, extractedKey); err != nil {
			s.log.Warn("failed to invalidate summary cache", zap.String("key", key), zap.Error(err))
		}
	} else {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			s.metrics.SummaryCacheHits.Inc()
			s.metrics.SummaryRequestsTotal.WithLabelValues("cache_hit").Inc()
			extracted, _ := s.cache.Get(ctx, extractedKey)
			return &SummaryResult{
				Summary:       cached,
				ExtractedText: extracted,
				FromCache:     true,
				GeneratedAt:   time.Now(),
			}, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("summary cache read failed, falling through to webhook",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
	s.metrics.SummaryCacheMisses.Inc()

	reports, err := s.reportRepo.GetByIDs(ctx, cmd.ReportIDs)
	if err != nil {
		s.metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("loading selected reports: %w", err)
	}
	if len(reports) == 0 {
		s.metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, report.ErrReportNotFound
	}

	payload := s.buildPayload(ctx, cmd, reports)
	if len(payload.Reports) == 0 {
		s.metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no report could be made accessible to the summarization service")
	}

	resp, err := s.callWebhook(ctx, payload)
	if err != nil {
		s.metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	raw := resp.text()
	if strings.TrimSpace(raw) == "" {
		s.metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, ErrEmptySummary
	}

	clean := sanitize.Clean(raw)
	if clean == "" {
		s.metrics.SummaryRequestsTotal.WithLabelValues("error").Inc()
		return nil, ErrEmptySummary
	}

	if err := s.cache.Set(ctx, key, clean, s.cfg.CacheTTL); err != nil {
		s.log.Warn("failed to cache summary", zap.String("key", key), zap.Error(err))
	}
	if resp.ExtractedText != "" {
		if err := s.cache.Set(ctx, extractedKey, resp.ExtractedText, s.cfg.CacheTTL); err != nil {
			s.log.Warn("failed to cache extracted text", zap.String("key", extractedKey), zap.Error(err))
		}
	}

	s.metrics.SummaryRequestsTotal.WithLabelValues("success").Inc()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "summarize",
		ResourceType: "report",
		ResourceID:   joinIDs(cmd.ReportIDs),
		IPAddress:    ip,
	})

	return &SummaryResult{
		Summary:       clean,
		ExtractedText: resp.ExtractedText,
		GeneratedAt:   time.Now(),
	}, nil
}

// Invalidate drops any cached summary for the given selection.
func (s *SummaryService) Invalidate(ctx context.Context, patientID uuid.UUID, reportIDs []uuid.UUID) error {
	key := cacheKey(patientID, reportIDs)
	return s.cache.Delete(ctx, key, key+"_extracted")
}

func (s *SummaryService) buildPayload(ctx context.Context, cmd *SummarizeCommand, reports []*report.PatientReport) *webhookRequest {
	entries := make([]webhookReport, 0, len(reports))
	for _, r := range reports {
		url, err := s.store.PresignReport(ctx, r.FilePath)
		if err != nil {
			s.metrics.PresignFailures.Inc()
			s.log.Warn("dropping report from summary payload, presign failed",
				zap.String("report_id", r.ID.String()),
				zap.Error(err),
			)
			continue
		}
		entries = append(entries, webhookReport{
			ID:         r.ID.String(),
			Name:       r.ReportName,
			Type:       string(r.ReportType),
			FileURL:    url,
			UploadDate: r.UploadDate,
			FileSize:   r.FileSize,
			FileType:   r.FileType,
		})
	}

	return &webhookRequest{
		Reports:   entries,
		PatientID: cmd.PatientID.String(),
		DoctorID:  cmd.DoctorID.String(),
		Timestamp: time.Now().UTC(),
		Options: webhookOptions{
			OutputFormat: s.cfg.OutputFormat,
			Chunked:      true,
		},
	}
}

func (s *SummaryService) callWebhook(ctx context.Context, payload *webhookRequest) (*webhookResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookFailed, err)
	}
	defer httpResp.Body.Close()
	s.metrics.WebhookDuration.Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("reading webhook response: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrWebhookFailed, httpResp.StatusCode)
	}

	return parseWebhookResponse(raw)
}

// parseWebhookResponse accepts either a bare object or an array whose first
// element carries the summary.
func parseWebhookResponse(raw []byte) (*webhookResponse, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrWebhookFailed)
	}

	if trimmed[0] == '[' {
		var list []webhookResponse
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: unparseable array response: %v", ErrWebhookFailed, err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("%w: empty array response", ErrWebhookFailed)
		}
		return &list[0], nil
	}

	var obj webhookResponse
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: unparseable response: %v", ErrWebhookFailed, err)
	}
	return &obj, nil
}

// cacheKey is deterministic for a selection regardless of the order the ids
// arrived in.
func cacheKey(patientID uuid.UUID, reportIDs []uuid.UUID) string {
	ids := make([]string, len(reportIDs))
	for i, id := range reportIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)
	return fmt.Sprintf("ai_summary_%s_%s", patientID, strings.Join(ids, "_"))
}
