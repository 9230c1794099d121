package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aldric144/rtcc-platform/internal/transport"
)

// MaxRedirects bounds how many redirects the webhook client follows
// before giving up, guarding against redirect chains that pivot an
// allowlisted request onto an internal host.
const MaxRedirects = 3

// DefaultTimeout bounds a single webhook delivery attempt.
const DefaultTimeout = 5 * time.Second

// WebhookChannel POSTs alerts to an external URL, signing the body
// with an HMAC so the receiver can verify the source, and refusing to
// resolve to a private network unless explicitly allowlisted.
type WebhookChannel struct {
	name           string
	url            string
	verifier       *transport.WebhookVerifier
	allowedCIDRs   []*net.IPNet
	client         *http.Client
}

// NewWebhookChannel builds a webhook channel posting to target, signed
// with secret. allowedPrivateCIDRs permits delivery to specific
// private-network destinations (e.g. an on-prem SIEM); any other
// private/loopback/link-local destination is refused.
func NewWebhookChannel(name, target, secret string, allowedPrivateCIDRs []string) (*WebhookChannel, error) {
	nets := make([]*net.IPNet, 0, len(allowedPrivateCIDRs))
	for _, cidr := range allowedPrivateCIDRs {
		_, n, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid allowlisted CIDR %q: %w", cidr, err)
		}
		nets = append(nets, n)
	}

	w := &WebhookChannel{
		name:         name,
		url:          target,
		verifier:     transport.NewWebhookVerifier(secret),
		allowedCIDRs: nets,
	}

	w.client = &http.Client{
		Timeout: DefaultTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			if err := w.checkDestination(req.URL); err != nil {
				return err
			}
			return nil
		},
	}

	return w, nil
}

func (w *WebhookChannel) Name() string { return w.name }

func (w *WebhookChannel) checkDestination(u *url.URL) error {
	host := u.Hostname()
	ips, err := net.LookupIP(host)
	if err != nil {
		return fmt.Errorf("resolve webhook host %q: %w", host, err)
	}
	for _, ip := range ips {
		if !isPrivate(ip) {
			continue
		}
		if w.isAllowlisted(ip) {
			continue
		}
		return fmt.Errorf("webhook destination %s resolves to a private address not in the allowlist", host)
	}
	return nil
}

func (w *WebhookChannel) isAllowlisted(ip net.IP) bool {
	for _, n := range w.allowedCIDRs {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func isPrivate(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast()
}

type webhookEnvelope struct {
	Source   string         `json:"source"`
	Severity string         `json:"severity"`
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	RaisedAt time.Time      `json:"raised_at"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Send signs and POSTs the alert, validating the destination before
// every attempt since DNS can change between calls.
func (w *WebhookChannel) Send(ctx context.Context, alert Alert) error {
	parsed, err := url.Parse(w.url)
	if err != nil {
		return fmt.Errorf("parse webhook URL: %w", err)
	}
	if err := w.checkDestination(parsed); err != nil {
		return fmt.Errorf("webhook URL validation failed: %w", err)
	}

	body, err := json.Marshal(webhookEnvelope{
		Source:   alert.Source,
		Severity: alert.Severity,
		Title:    alert.Title,
		Body:     alert.Body,
		RaisedAt: alert.RaisedAt,
		Metadata: alert.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-RTCC-Signature", w.verifier.Sign(body))

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Warn().Str("channel", w.name).Int("status", resp.StatusCode).Msg("webhook delivery rejected")
		return fmt.Errorf("webhook destination returned status %d", resp.StatusCode)
	}
	return nil
}
