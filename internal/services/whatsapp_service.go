package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"license-server/internal/config"
	"license-server/internal/metrics"
	"license-server/internal/models"
	"license-server/pkg/logging"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

// maxAuditResponseBytes caps the gateway response stored per audit row
const maxAuditResponseBytes = 65535

// WhatsAppService posts templated messages to a Whaticket-compatible
// gateway and audits every attempt. It implements Notifier.
type WhatsAppService struct {
	db         *gorm.DB
	httpClient *http.Client
	templates  map[string]string
}

// whatsAppPayload is the gateway message body
type whatsAppPayload struct {
	Number        string `json:"number"`
	Body          string `json:"body"`
	UserID        string `json:"userId"`
	QueueID       string `json:"queueId"`
	SendSignature bool   `json:"sendSignature"`
	CloseTicket   bool   `json:"closeTicket"`
}

// defaultTemplates are the built-in message bodies; an optional YAML file
// keyed by notification type overrides individual entries.
var defaultTemplates = map[string]string{
	NotifyLicenseCreated: "🎉 *¡Licencia Activada!*\n\n" +
		"Hola *{client_name}*,\n\n" +
		"Tu licencia de {company} ha sido activada exitosamente:\n\n" +
		"🔑 *Clave de Licencia:*\n`{license_key}`\n\n" +
		"📅 *Válida hasta:* {expires_date}\n" +
		"🏢 *Producto:* {product_name}\n\n" +
		"✅ Ya puedes utilizar tu licencia.\n\n" +
		"_¡Gracias por confiar en nosotros!_",

	NotifyExpiringSoon: "⚠️ *¡Atención! Licencia por Expirar*\n\n" +
		"Hola *{client_name}*,\n\n" +
		"Tu licencia de {company} expirará en *{days_remaining} días*:\n\n" +
		"🔑 *Clave:* `{license_key}`\n" +
		"📅 *Expira:* {expires_date}\n" +
		"🏢 *Producto:* {product_name}\n\n" +
		"🔄 *¡Renueva ahora para evitar interrupciones!*\n\n" +
		"Contáctanos para procesar tu renovación.",

	NotifyStatusChanged: "🔄 *Estado de Licencia Actualizado*\n\n" +
		"Hola *{client_name}*,\n\n" +
		"El estado de tu licencia ha sido modificado:\n\n" +
		"🔑 *Clave:* `{license_key}`\n" +
		"📊 *Estado anterior:* {old_status}\n" +
		"📊 *Estado actual:* *{new_status}*\n" +
		"🏢 *Producto:* {product_name}\n\n" +
		"{status_message}\n\n" +
		"Si tienes dudas, no dudes en contactarnos.",

	NotifyLicenseExpired: "🚫 *Licencia Expirada*\n\n" +
		"Hola *{client_name}*,\n\n" +
		"Tu licencia de {company} ha expirado:\n\n" +
		"🔑 *Clave:* `{license_key}`\n" +
		"📅 *Expiró:* {expires_date}\n" +
		"🏢 *Producto:* {product_name}\n\n" +
		"⛔ *El acceso ha sido suspendido.*\n\n" +
		"🔄 Contáctanos inmediatamente para renovar y recuperar el acceso.",

	NotifyLicenseActivated: "✅ *¡Licencia Reactivada!*\n\n" +
		"Hola *{client_name}*,\n\n" +
		"Tu licencia ha sido reactivada en el dominio:\n\n" +
		"🔑 *Clave:* `{license_key}`\n" +
		"🌐 *Dominio:* {domain}\n" +
		"📅 *Válida hasta:* {expires_date}\n\n" +
		"✅ El sistema ya está funcionando normalmente.\n\n" +
		"_Gracias por usar {company}_",
}

var statusMessages = map[string]string{
	models.LicenseStatusActive:    "✅ Tu licencia está ahora *ACTIVA* y funcionando.",
	models.LicenseStatusSuspended: "⏸️ Tu licencia ha sido *SUSPENDIDA* temporalmente.",
	models.LicenseStatusExpired:   "⛔ Tu licencia ha *EXPIRADO*. Contacta para renovar.",
	models.LicenseStatusRevoked:   "🚫 Tu licencia ha sido *REVOCADA* permanentemente.",
}

// NewWhatsAppService creates a new dispatcher
func NewWhatsAppService(db *gorm.DB) *WhatsAppService {
	s := &WhatsAppService{
		db: db,
		httpClient: &http.Client{
			Timeout: time.Duration(config.AppConfig.WhatsAppTimeoutSec) * time.Second,
		},
		templates: make(map[string]string, len(defaultTemplates)),
	}
	for k, v := range defaultTemplates {
		s.templates[k] = v
	}
	if path := config.AppConfig.WhatsAppTemplateFile; path != "" {
		if err := s.loadTemplateOverrides(path); err != nil {
			logging.Errorf("Failed to load WhatsApp templates from %s: %v", path, err)
		}
	}
	return s
}

func (s *WhatsAppService) loadTemplateOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	overrides := make(map[string]string)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse template file: %w", err)
	}
	for k, v := range overrides {
		s.templates[k] = v
	}
	return nil
}

// Send renders the template for the notification type and posts it to the
// gateway. Returns false, without error, when the feature is disabled, the
// phone is missing or invalid, or no template exists. Every actual send
// attempt gets an audit row regardless of outcome.
func (s *WhatsAppService) Send(notificationType string, data NotificationData) bool {
	if !config.AppConfig.WhatsAppEnabled || data.ClientPhone == "" {
		logging.Infof("WhatsApp notification skipped (disabled or no phone) type=%s", notificationType)
		return false
	}

	phone, ok := CleanPhoneNumber(data.ClientPhone, config.AppConfig.CountryCode)
	if !ok {
		logging.Warnf("WhatsApp notification skipped: invalid phone %q type=%s", data.ClientPhone, notificationType)
		s.audit(data.ClientPhone, "", notificationType, 0, "invalid phone number after cleaning")
		return false
	}

	message := s.renderTemplate(notificationType, data)
	if message == "" {
		logging.Warnf("WhatsApp notification skipped: no template for type=%s", notificationType)
		return false
	}

	return s.post(phone, message, notificationType)
}

// CleanPhoneNumber normalizes a phone to the canonical 12-digit prefixed
// form: strip non-digits; prepend the country code to bare 10-digit
// numbers; drop a redundant zero after the code in 13-digit numbers;
// reject everything that does not land on code+10 digits.
func CleanPhoneNumber(phone, countryCode string) (string, bool) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	if len(digits) == 10 && !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	if len(digits) == 13 && strings.HasPrefix(digits, countryCode) {
		if digits[len(countryCode)] == '0' {
			digits = countryCode + digits[len(countryCode)+1:]
		}
	}

	if len(digits) == len(countryCode)+10 && strings.HasPrefix(digits, countryCode) {
		return digits, true
	}
	return "", false
}

func (s *WhatsAppService) renderTemplate(notificationType string, data NotificationData) string {
	tpl, ok := s.templates[notificationType]
	if !ok {
		return ""
	}

	expires := "*Permanente*"
	if data.ExpiresAt != nil {
		expires = data.ExpiresAt.Format("02/01/2006 15:04")
	}
	clientName := data.ClientName
	if clientName == "" {
		clientName = "Cliente"
	}
	productName := data.ProductName
	if productName == "" {
		productName = config.AppConfig.CompanyName
	}

	replacements := map[string]string{
		"{client_name}":    clientName,
		"{license_key}":    data.LicenseKey,
		"{expires_date}":   expires,
		"{days_remaining}": strconv.Itoa(data.DaysRemaining),
		"{old_status}":     capitalize(data.OldStatus),
		"{new_status}":     capitalize(data.NewStatus),
		"{product_name}":   productName,
		"{domain}":         data.Domain,
		"{company}":        config.AppConfig.CompanyName,
		"{status_message}": statusMessages[data.NewStatus],
	}

	message := tpl
	for placeholder, value := range replacements {
		message = strings.ReplaceAll(message, placeholder, value)
	}

	if support := config.AppConfig.SupportPhone; support != "" {
		message += "\n\n📞 Soporte: " + support
	}
	return message
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// post performs the single delivery attempt. No retry: a failure is logged
// and absorbed.
func (s *WhatsAppService) post(phone, message, notificationType string) bool {
	payload := whatsAppPayload{
		Number:        phone,
		Body:          message,
		UserID:        config.AppConfig.WhatsAppUserID,
		QueueID:       config.AppConfig.WhatsAppQueueID,
		SendSignature: config.AppConfig.WhatsAppSendSignature,
		CloseTicket:   config.AppConfig.WhatsAppCloseTicket,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		s.audit(phone, message, notificationType, 0, "failed to marshal payload: "+err.Error())
		return false
	}

	req, err := http.NewRequest(http.MethodPost, config.AppConfig.WhatsAppEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		s.audit(phone, message, notificationType, 0, "failed to create request: "+err.Error())
		return false
	}
	req.Header.Set("Authorization", "Bearer "+config.AppConfig.WhatsAppToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logging.Errorf("WhatsApp send failed type=%s phone=%s: %v", notificationType, phone, err)
		s.audit(phone, message, notificationType, 0, err.Error())
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxAuditResponseBytes))
	s.audit(phone, message, notificationType, resp.StatusCode, string(body))

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	outcome := "success"
	if !success {
		outcome = "failure"
		logging.Errorf("WhatsApp gateway error type=%s phone=%s code=%d", notificationType, phone, resp.StatusCode)
	}
	metrics.NotificationsSent.WithLabelValues(notificationType, outcome).Inc()
	return success
}

// audit writes the send-attempt row; audit failures only log
func (s *WhatsAppService) audit(phone, message, notificationType string, httpCode int, responseDetail string) {
	if s.db == nil {
		return
	}
	if len(responseDetail) > maxAuditResponseBytes {
		responseDetail = responseDetail[:maxAuditResponseBytes]
	}
	entry := models.WhatsAppLog{
		Phone:    phone,
		Message:  message,
		Type:     notificationType,
		HTTPCode: httpCode,
		Response: responseDetail,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		logging.Errorf("Failed to log WhatsApp send: %v", err)
	}
}
