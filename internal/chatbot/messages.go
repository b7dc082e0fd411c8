package chatbot

import (
	"fmt"

	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
)

const (
	greetingText = "Hi there! 👋 I'm here to help you. Let me gather some information so our team can assist you better."
	retryText    = "I need a bit more information. Could you please provide a valid response?"
	ackText      = "Our Team will contact you shortly. Thank you for reaching out! 😊"
	failureText  = "I'm sorry, there was an issue sending your information. Please try again or contact us directly."

	// NotificationSubject is the subject line of the email the relay sends for chat leads.
	NotificationSubject = "New AI Chat Inquiry from OptimumSoft Website"
)

var questions = map[Step]string{
	StepName:    "What's your name?",
	StepEmail:   "Great! What's your email address?",
	StepPhone:   "Perfect! Can you share your phone number?",
	StepMessage: "Thanks! Now, could you please describe your issue, problem, or what you'd like help with?",
}

// Question returns the prompt asked at step.
func Question(step Step) string {
	return questions[step]
}

// Submission builds the gateway payload for a completed lead.
func (l Lead) Submission() gateway.Submission {
	return gateway.Submission{
		Source:  gateway.SourceChat,
		Name:    l.Name,
		Email:   l.Email,
		Phone:   l.Phone,
		Subject: "AI Chat Inquiry - " + l.Name,
		Message: fmt.Sprintf("Name: %s\nEmail: %s\nPhone: %s\n\nMessage/Issue:\n%s",
			l.Name, l.Email, l.Phone, l.Message),
		NotificationSubject: NotificationSubject,
	}
}
