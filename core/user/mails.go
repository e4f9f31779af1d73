package user

import (
	"net/mail"

	"github.com/trezcool/chakula/core"
)

func (svc *service) sendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.MailAddress()},
		Subject:      "Welcome!",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name": usr.FullName(),
		},
	})
}

func (svc *service) sendPasswordResetMail(usr User, token string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.MailAddress()},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name":  usr.FullName(),
			"Path":  "/password-reset-confirm",
			"UID":   EncodeUID(usr),
			"Token": token,
		},
	})
}

func (svc *service) sendAccountCreatedMail(usr User, tempPwd string) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.MailAddress()},
		Subject:      "Your account has been created",
		TemplateName: "account_created",
		TemplateData: map[string]interface{}{
			"Name":     usr.FullName(),
			"Email":    usr.Email,
			"Role":     usr.Role,
			"Password": tempPwd,
		},
	})
}

func (svc *service) sendAccountStatusMail(usr User) {
	subject := "Your account has been activated"
	if usr.IsBlocked() {
		subject = "Your account has been suspended"
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.MailAddress()},
		Subject:      subject,
		TemplateName: "account_status",
		TemplateData: map[string]interface{}{
			"Name":    usr.FullName(),
			"Blocked": usr.IsBlocked(),
			"Status":  usr.Status,
		},
	})
}

func (svc *service) sendAccountDeletedMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{usr.MailAddress()},
		Subject:      "Your account has been deleted",
		TemplateName: "account_deleted",
		TemplateData: map[string]interface{}{
			"Name": usr.FullName(),
		},
	})
}

func (svc *service) sendContactMail(msg ContactMessage) {
	subject := msg.Subject
	if subject == "" {
		subject = "New contact message"
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.conf.AdminEmail},
		Subject:      subject,
		TemplateName: "contact_us",
		TemplateData: map[string]interface{}{
			"Name":    msg.Name,
			"Email":   msg.Email,
			"Message": msg.Message,
		},
	})
}
