// Package chat answers disaster-preparedness questions. A hosted model is
// tried first; canned keyword answers cover outages.
package chat

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"disaster-relief/backend/internal/ai"
)

// DefaultReply is sent when no keyword matches the message.
const DefaultReply = "I'm your AI disaster management assistant. I can help with earthquakes, floods, fires, emergency kits, evacuation procedures, and missing persons. What would you like to know?"

type keywordReply struct {
	keyword string
	reply   string
}

// Checked in order; the first keyword found in the message wins.
var keywordReplies = []keywordReply{
	{"hello", "Hello! I'm your AI DisasterBot. I can help with disaster management questions."},
	{"earthquake", "For earthquakes: DROP, COVER, and HOLD ON. Stay away from windows and heavy objects. Check for injuries and gas leaks after."},
	{"flood", "For floods: Move to higher ground immediately. Avoid walking through flood water. Turn off utilities if instructed."},
	{"fire", "For fires: Evacuate immediately if ordered. Close all windows and doors. Have an escape plan ready."},
	{"emergency", "In emergencies, call local emergency services (911) or use the SOS button on this website."},
	{"kit", "Emergency kit should include: water (1 gal/person/day), non-perishable food, flashlight, batteries, first aid supplies, medications, radio, and important documents."},
	{"missing", "To report missing persons, use our Missing Persons page or contact local authorities immediately."},
	{"evacuation", "Know your evacuation routes in advance. Have a family meeting point. Keep important documents ready."},
}

// KeywordReply returns the canned answer for the first matching keyword.
func KeywordReply(message string) string {
	lowered := strings.ToLower(message)
	for _, kr := range keywordReplies {
		if strings.Contains(lowered, kr.keyword) {
			return kr.reply
		}
	}
	return DefaultReply
}

// Reply is a chat answer plus the engine that produced it.
type Reply struct {
	Text   string
	Engine string
}

const (
	EngineModel    = "model"
	EngineKeywords = "keywords"
)

// Service answers chat messages. It never fails for a non-empty message.
type Service struct {
	responder ai.Responder
}

// NewService builds a chat service; responder may be nil.
func NewService(responder ai.Responder) *Service {
	return &Service{responder: responder}
}

// Reply answers the message with the model if possible, otherwise with a
// keyword answer.
func (s *Service) Reply(ctx context.Context, message string) Reply {
	if s.responder != nil && s.responder.Enabled() {
		text, err := s.responder.Reply(ctx, message)
		if err == nil {
			return Reply{Text: text, Engine: EngineModel}
		}
		logrus.WithError(err).Warn("chat model reply failed, using keyword answers")
	}
	return Reply{Text: KeywordReply(message), Engine: EngineKeywords}
}
