package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/fiapx/fiapx-frame-extractor/internal/domain/entity"
	"go.uber.org/zap"
)

type SMTPNotifier struct {
	host   string
	port   int
	from   string
	logger *zap.Logger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(host string, port int, from string, logger *zap.Logger) *SMTPNotifier {
	return &SMTPNotifier{host: host, port: port, from: from, logger: logger, send: smtp.SendMail}
}

func (n *SMTPNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	jobID := job.ID.String()

	msg := failureMessage(n.from, userEmail, job)
	if err := n.send(addr, nil, n.from, []string{userEmail}, msg); err != nil {
		n.logger.Error("failed to send failure notification email",
			zap.String("to", userEmail),
			zap.String("job_id", jobID),
			zap.Error(err),
		)
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("failure notification email sent",
		zap.String("to", userEmail),
		zap.String("job_id", jobID),
	)
	return nil
}

func failureMessage(from, to string, job *entity.Job) []byte {
	subject := fmt.Sprintf("FIAP X - Frame Extraction Failed [Job %s]", job.ID)
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"Your frame extraction job has permanently failed.\r\n\r\n"+
			"Job ID: %s\r\n"+
			"Video: %s\r\n"+
			"Frames written before the failure: %d\r\n"+
			"Attempts: %d of %d\r\n"+
			"Error: %s\r\n\r\n"+
			"Please check the video and extraction options and submit it again, or contact support.\r\n\r\n"+
			"-- FIAP X Frame Extractor",
		job.ID, job.VideoKey, job.FramesWritten, job.Attempt, job.MaxAttempts, job.ErrorMessage,
	)
	return []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", from, to, subject, body))
}
