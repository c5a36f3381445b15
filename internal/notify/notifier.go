// internal/notify/notifier.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"medclaim-portal/internal/common/config"
	apperrors "medclaim-portal/internal/common/errors"
	"medclaim-portal/internal/common/logger"
	"medclaim-portal/internal/common/metrics"
	"medclaim-portal/internal/models"
)

// Template keys.
const (
	TypeQueryCreated = "query_created"
	TypeAdminReplied = "admin_replied"
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier sends employee emails through SES and urgent-priority alerts
// through SNS. All sends are best-effort from the caller's point of view.
type Notifier struct {
	cfg         config.NotificationConfig
	logger      logger.Logger
	sesClient   SESService
	snsClient   SNSService
	templateMap map[string]map[string]string
}

func NewNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (*Notifier, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Notifier{
		cfg:         cfg,
		logger:      log.WithFields(map[string]interface{}{"component": "notifier"}),
		sesClient:   ses.NewFromConfig(awsCfg),
		snsClient:   sns.NewFromConfig(awsCfg),
		templateMap: loadTemplates(),
	}, nil
}

// QueryCreated emails the employee the tokenized link to the new query.
func (n *Notifier) QueryCreated(ctx context.Context, q *models.Query, app *models.Application, publicURL string) error {
	return n.sendTemplated(ctx, TypeQueryCreated, q.EmployeeEmail, map[string]interface{}{
		"employeeName":      app.EmployeeName,
		"applicationNumber": app.ApplicationNumber,
		"subject":           q.Subject,
		"publicUrl":         publicURL,
	})
}

// AdminReplied emails the employee that the thread has a new response.
func (n *Notifier) AdminReplied(ctx context.Context, q *models.Query, publicURL string) error {
	return n.sendTemplated(ctx, TypeAdminReplied, q.EmployeeEmail, map[string]interface{}{
		"subject":   q.Subject,
		"publicUrl": publicURL,
	})
}

// UrgentQuery publishes to the urgent-alert topic so the on-duty cell gets
// paged even when nobody is watching the dashboard.
func (n *Notifier) UrgentQuery(ctx context.Context, q *models.Query, app *models.Application) error {
	if !n.cfg.UrgentAlert.Enabled || n.cfg.UrgentAlert.TopicARN == "" {
		return nil
	}

	message := renderTemplate(
		"Urgent query on claim {{applicationNumber}} ({{employeeName}}): {{subject}}",
		map[string]interface{}{
			"applicationNumber": app.ApplicationNumber,
			"employeeName":      app.EmployeeName,
			"subject":           q.Subject,
		},
	)

	_, err := n.snsClient.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.cfg.UrgentAlert.TopicARN),
		Subject:  aws.String("Urgent claim query"),
		Message:  aws.String(message),
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("sns", "failed").Inc()
		return apperrors.NewNotificationSendFailedError("sns", err)
	}
	metrics.NotificationsSent.WithLabelValues("sns", "sent").Inc()
	return nil
}

func (n *Notifier) sendTemplated(ctx context.Context, notificationType, to string, data map[string]interface{}) error {
	if !n.cfg.Email.Enabled {
		n.logger.Debug("email disabled, skipping send", map[string]interface{}{
			"type": notificationType,
		})
		return nil
	}
	if to == "" {
		n.logger.Warn("no recipient email on record", map[string]interface{}{
			"type": notificationType,
		})
		return nil
	}

	template, exists := n.templateMap[notificationType]
	if !exists {
		return fmt.Errorf("template not found for type: %s", notificationType)
	}

	subject := renderTemplate(template["subject"], data)
	body := renderTemplate(template["body"], data)

	if err := n.sendEmail(ctx, to, subject, body); err != nil {
		metrics.NotificationsSent.WithLabelValues("email", "failed").Inc()
		return apperrors.NewNotificationSendFailedError("email", err)
	}
	metrics.NotificationsSent.WithLabelValues("email", "sent").Inc()
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := n.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
				Html: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.cfg.Email.FromEmail),
	})
	return err
}

// Simplified template rendering with placeholder removal for missing values
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if i, ok := v.(int); ok {
			value = fmt.Sprintf("%d", i)
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	// Remove any remaining placeholders (missing values)
	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}

func loadTemplates() map[string]map[string]string {
	return map[string]map[string]string{
		TypeQueryCreated: {
			"subject": "Clarification needed on your medical claim {{applicationNumber}}",
			"body": "Dear {{employeeName}},\n\n" +
				"The processing cell has raised a query on your claim {{applicationNumber}}: {{subject}}.\n\n" +
				"Please respond using this link (valid for 30 days):\n{{publicUrl}}\n",
		},
		TypeAdminReplied: {
			"subject": "New response on your claim query: {{subject}}",
			"body": "There is a new response on your claim query \"{{subject}}\".\n\n" +
				"View and reply here:\n{{publicUrl}}\n",
		},
	}
}
