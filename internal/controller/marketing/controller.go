// Package marketing serves the public HTML pages and the plan list.
package marketing

import (
	"fmt"
	"html"
	"net/http"
	"net/mail"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/model"
	"talentpool-backend/internal/queue"
	"talentpool-backend/internal/web"
)

// MaxMessageLength is longest contact message accepted
const MaxMessageLength = 5000

// MarketingController renders pages with templates set on the engine by web.Templates
type MarketingController struct {
	Notifier     *queue.Notifier
	ContactInbox string
	Log          *logrus.Entry
}

func NewMarketingController(notifier *queue.Notifier, contactInbox string, log *logrus.Entry) *MarketingController {
	if log == nil {
		log = logrus.WithField("component", "marketing")
	}
	return &MarketingController{
		Notifier:     notifier,
		ContactInbox: contactInbox,
		Log:          log,
	}
}

func (mc *MarketingController) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "home.html", web.NewPage("Home"))
}

func (mc *MarketingController) Pricing(c *gin.Context) {
	page := web.NewPage("Pricing")
	page.Plans = model.Plans
	c.HTML(http.StatusOK, "pricing.html", page)
}

func (mc *MarketingController) About(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", web.NewPage("About"))
}

func (mc *MarketingController) ContactPage(c *gin.Context) {
	c.HTML(http.StatusOK, "contact.html", web.NewPage("Contact"))
}

func validateContact(form web.ContactForm) string {
	switch {
	case form.Name == "":
		return "Name is required"
	case form.Email == "":
		return "Email is required"
	case form.Message == "":
		return "Message is required"
	case len(form.Message) > MaxMessageLength:
		return fmt.Sprintf("Message must be at most %d characters", MaxMessageLength)
	}
	if _, err := mail.ParseAddress(form.Email); err != nil {
		return "Email is invalid"
	}
	return ""
}

func contactEmail(inbox string, form web.ContactForm) queue.Notification {
	body := fmt.Sprintf("<p>From: %s &lt;%s&gt;</p><p>%s</p>",
		html.EscapeString(form.Name),
		html.EscapeString(form.Email),
		strings.ReplaceAll(html.EscapeString(form.Message), "\n", "<br>"))
	return queue.EmailNotification(integrations.Email{
		To:      inbox,
		Subject: "Contact form: " + form.Name,
		HTML:    body,
	})
}

// SubmitContact forward contact form to the contact inbox and re-render the page
func (mc *MarketingController) SubmitContact(c *gin.Context) {
	page := web.NewPage("Contact")
	if err := c.ShouldBind(&page.Form); err != nil {
		page.Error = "Invalid form"
		c.HTML(http.StatusBadRequest, "contact.html", page)
		return
	}
	page.Form.Name = strings.TrimSpace(page.Form.Name)
	page.Form.Email = strings.TrimSpace(page.Form.Email)
	page.Form.Message = strings.TrimSpace(page.Form.Message)

	if msg := validateContact(page.Form); msg != "" {
		page.Error = msg
		c.HTML(http.StatusBadRequest, "contact.html", page)
		return
	}

	if mc.ContactInbox == "" || !mc.Notifier.CanSend(queue.KindEmail) {
		mc.Log.Warn("contact form submitted but no contact inbox is configured")
		page.Error = "Contact form is unavailable right now, please try again later"
		c.HTML(http.StatusServiceUnavailable, "contact.html", page)
		return
	}

	if err := mc.Notifier.Send(c.Request.Context(), contactEmail(mc.ContactInbox, page.Form)); err != nil {
		mc.Log.WithError(err).Error("failed to queue contact message")
		page.Error = "Failed to send your message, please try again later"
		c.HTML(http.StatusInternalServerError, "contact.html", page)
		return
	}

	page.Form = web.ContactForm{}
	page.Success = true
	c.HTML(http.StatusOK, "contact.html", page)
}

// GetPlans list every plan
// @Summary List plans
// @Tags Marketing
// @Produce json
// @Success 200 {array} model.Plan
// @Router /plans [get]
func (mc *MarketingController) GetPlans(c *gin.Context) {
	c.JSON(http.StatusOK, model.Plans)
}
