// utils/verifier.go
package utils

import (
	"context"
	"errors"
	"net"
	"net/smtp"
	"net/textproto"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/likexian/whois"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"emailfinder/config"
	"emailfinder/models"
)

// Confidence assigned at each verification outcome.
const (
	ConfidenceInvalid      = 0
	ConfidenceDNSFailed    = 20
	ConfidenceRejected     = 30
	ConfidenceNoMX         = 60
	ConfidenceInconclusive = 70
	ConfidenceAccepted     = 95
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}$`)

// MXResolver is satisfied by *net.Resolver.
type MXResolver interface {
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
}

// Verifier checks syntax, MX records and SMTP acceptance of an address
// without ever sending a message body.
type Verifier struct {
	Resolver    MXResolver
	Dial        func(ctx context.Context, network, addr string) (net.Conn, error)
	HeloName    string
	MailFrom    string
	SMTPPort    string
	DNSTimeout  time.Duration
	SMTPTimeout time.Duration
	// Concurrency bounds parallel checks in VerifyBatch; 1 keeps them sequential.
	Concurrency int
	LookupWHOIS bool
	Logger      logrus.FieldLogger
}

// NewVerifier builds a Verifier from configuration using the system resolver.
func NewVerifier(cfg config.VerifierConfig, logger logrus.FieldLogger) *Verifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	dialer := &net.Dialer{}
	return &Verifier{
		Resolver:    net.DefaultResolver,
		Dial:        dialer.DialContext,
		HeloName:    cfg.HeloName,
		MailFrom:    cfg.MailFrom,
		SMTPPort:    cfg.SMTPPort,
		DNSTimeout:  cfg.DNSTimeout,
		SMTPTimeout: cfg.SMTPTimeout,
		Concurrency: cfg.Concurrency,
		LookupWHOIS: cfg.LookupWHOIS,
		Logger:      logger.WithField("component", "verifier"),
	}
}

// Verify runs syntax → DNS MX → SMTP RCPT for a single address.
// Failures never surface as errors; they lower the confidence instead.
func (v *Verifier) Verify(ctx context.Context, email string) models.VerificationResult {
	result := v.verify(ctx, email)
	if v.LookupWHOIS && result.ValidFormat {
		if info, err := whois.Whois(ExtractDomain(result.Email)); err == nil {
			result.WHOIS = info
		}
	}
	return result
}

func (v *Verifier) verify(ctx context.Context, email string) models.VerificationResult {
	email = strings.ToLower(strings.TrimSpace(email))
	result := models.VerificationResult{
		Email:       email,
		MXRecords:   []string{},
		SMTPValid:   models.Unknown,
		Deliverable: models.False,
		Confidence:  ConfidenceInvalid,
	}

	// 1. Syntax
	if !IsValidEmailFormat(email) {
		return result
	}
	result.ValidFormat = true

	// 2. DNS MX
	domain := ExtractDomain(email)
	hosts, err := v.getMXRecords(ctx, domain)
	if err != nil {
		v.logger().WithFields(logrus.Fields{"domain": domain, "error": err}).Debug("MX lookup failed")
		result.Confidence = ConfidenceDNSFailed
		return result
	}
	result.DNSValid = true
	result.MXRecords = hosts

	if len(hosts) == 0 {
		result.Confidence = ConfidenceNoMX
		return result
	}

	// 3. SMTP check against the first-preference exchanger
	switch v.checkSMTP(ctx, hosts[0], email) {
	case models.True:
		result.SMTPValid = models.True
		result.Deliverable = models.True
		result.Confidence = ConfidenceAccepted
	case models.False:
		result.SMTPValid = models.False
		result.Deliverable = models.False
		result.Confidence = ConfidenceRejected
	default:
		result.SMTPValid = models.Unknown
		result.Deliverable = models.Unknown
		result.Confidence = ConfidenceInconclusive
	}
	return result
}

// VerifyBatch verifies every address independently and returns the results
// sorted by descending confidence. Ties keep their input order.
func (v *Verifier) VerifyBatch(ctx context.Context, emails []string) []models.VerificationResult {
	results := make([]models.VerificationResult, len(emails))

	limit := v.Concurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, email := range emails {
		g.Go(func() error {
			results[i] = v.Verify(ctx, email)
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Confidence > results[b].Confidence
	})
	return results
}

// IsValidEmailFormat applies checkmail's format check and the stricter
// local@label(.label)+ pattern with an alphabetic final label.
func IsValidEmailFormat(email string) bool {
	if err := checkmail.ValidateFormat(email); err != nil {
		return false
	}
	return emailRegex.MatchString(email)
}

func (v *Verifier) getMXRecords(ctx context.Context, domain string) ([]string, error) {
	if v.DNSTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.DNSTimeout)
		defer cancel()
	}

	resolver := v.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	mxRecords, err := resolver.LookupMX(ctx, domain)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(mxRecords, func(i, j int) bool {
		return mxRecords[i].Pref < mxRecords[j].Pref
	})
	hosts := make([]string, 0, len(mxRecords))
	for _, mx := range mxRecords {
		host := strings.TrimSuffix(mx.Host, ".")
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	return hosts, nil
}

// checkSMTP asks the exchanger whether it would accept mail for email.
// Only an exact 250 to RCPT is True. Any SMTP reply code refusing HELO, MAIL
// or RCPT is False; network errors, disconnects and timeouts are Unknown.
func (v *Verifier) checkSMTP(ctx context.Context, mxHost, email string) models.TriState {
	log := v.logger().WithFields(logrus.Fields{"mx": mxHost, "email": email})

	if v.SMTPTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.SMTPTimeout)
		defer cancel()
	}

	dial := v.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	port := v.SMTPPort
	if port == "" {
		port = "25"
	}

	conn, err := dial(ctx, "tcp", net.JoinHostPort(mxHost, port))
	if err != nil {
		log.WithError(err).Debug("SMTP connect failed")
		return models.Unknown
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, mxHost)
	if err != nil {
		log.WithError(err).Debug("SMTP greeting failed")
		return models.Unknown
	}
	defer client.Close()

	if err = client.Hello(v.HeloName); err != nil {
		return v.refusedOrUnknown(log, client, "HELO", err)
	}
	if err = client.Mail(v.MailFrom); err != nil {
		return v.refusedOrUnknown(log, client, "MAIL FROM", err)
	}
	if err = rcpt(client, email); err != nil {
		return v.refusedOrUnknown(log, client, "RCPT TO", err)
	}
	_ = client.Quit()
	return models.True
}

// rcpt sends RCPT TO and insists on exactly 250. smtp.Client.Rcpt would
// also take 251.
func rcpt(client *smtp.Client, email string) error {
	id, err := client.Text.Cmd("RCPT TO:<%s>", email)
	if err != nil {
		return err
	}
	client.Text.StartResponse(id)
	defer client.Text.EndResponse(id)
	_, _, err = client.Text.ReadResponse(250)
	return err
}

func (v *Verifier) refusedOrUnknown(log logrus.FieldLogger, client *smtp.Client, stage string, err error) models.TriState {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		log.WithFields(logrus.Fields{"stage": stage, "code": protoErr.Code}).Debug("SMTP refused")
		_ = client.Quit()
		return models.False
	}
	log.WithError(err).WithField("stage", stage).Debug("SMTP check inconclusive")
	return models.Unknown
}

func (v *Verifier) logger() logrus.FieldLogger {
	if v.Logger == nil {
		return logrus.StandardLogger()
	}
	return v.Logger
}
