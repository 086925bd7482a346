package webhook

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"igcommerce_backend/internal/catalog"
	"igcommerce_backend/internal/classifier"
	convrepo "igcommerce_backend/internal/conversation/repository"
	convservice "igcommerce_backend/internal/conversation/service"
	"igcommerce_backend/internal/delivery"
	orderservice "igcommerce_backend/internal/orders/service"
	"igcommerce_backend/internal/speech"
	"igcommerce_backend/platform/apperr"
	"igcommerce_backend/platform/logger"
)

// historyDepth is how many prior turns feed the extraction prompt.
const historyDepth = 5

// unclearTranscriptConfidence rejects transcripts the speech service itself
// doubts; below this we ask the customer to type instead.
const unclearTranscriptConfidence = 0.3

// ConversationGateway is the slice of the conversation service the router needs.
type ConversationGateway interface {
	Ensure(ctx context.Context, conv convrepo.Conversation) (convrepo.Conversation, error)
	IsAIPaused(ctx context.Context, id string) (bool, error)
	AutoEscalate(ctx context.Context, conversationID, reason, triggerMessage string, sentimentScore float64)
	RecordMessage(ctx context.Context, msg convrepo.Message) error
	RecentMessages(ctx context.Context, conversationID string, limit int) ([]convrepo.Message, error)
}

// OrderPipeline runs the extraction pipeline for one message.
type OrderPipeline interface {
	ProcessMessage(ctx context.Context, merchant catalog.Merchant, conversationID, customerID, messageID, text string, history []string) (orderservice.Outcome, error)
}

// Sender is the outbound delivery surface.
type Sender interface {
	MarkInbound(ctx context.Context, pageID, recipientID string)
	Send(ctx context.Context, pageID, recipientID, text string) delivery.Result
	SendFallback(ctx context.Context, pageID, recipientID, language string)
}

// VoiceTranscriber turns an audio attachment into text.
type VoiceTranscriber interface {
	Process(ctx context.Context, merchant catalog.Merchant, audioURL, language string) (speech.Transcription, error)
}

// Service routes parsed inbound events through classification, conversation
// state, reply generation, and the order pipeline.
type Service struct {
	merchants     catalog.Reader
	conversations ConversationGateway
	orders        OrderPipeline
	gateway       classifier.Gateway
	transcriber   VoiceTranscriber
	sender        Sender
	log           *logger.Logger
}

// NewService creates the webhook processing service. transcriber may be nil
// when speech support is not configured.
func NewService(merchants catalog.Reader, conversations ConversationGateway, orders OrderPipeline, gateway classifier.Gateway, transcriber VoiceTranscriber, sender Sender, log *logger.Logger) *Service {
	return &Service{
		merchants:     merchants,
		conversations: conversations,
		orders:        orders,
		gateway:       gateway,
		transcriber:   transcriber,
		sender:        sender,
		log:           log,
	}
}

// Process handles one webhook delivery. Events run sequentially to preserve
// ordering; a failing event never stops the rest of the batch.
func (s *Service) Process(ctx context.Context, events []InboundEvent) {
	for _, ev := range events {
		if ev.Echo {
			continue
		}
		s.processEvent(ctx, ev)
	}
}

func (s *Service) processEvent(ctx context.Context, ev InboundEvent) {
	merchant, err := s.merchants.MerchantByPageID(ctx, ev.PageID)
	if err != nil {
		// Unknown or inactive page: nothing to do for this event.
		s.log.Warn("webhook event for unknown page", "page_id", ev.PageID, "error", err)
		return
	}

	s.sender.MarkInbound(ctx, ev.PageID, ev.SenderID)
	s.log.WebhookEvent(ev.PageID, ev.SenderID, ev.MessageID, string(ev.Kind))

	conv, err := s.conversations.Ensure(ctx, convrepo.Conversation{
		ID:         convservice.ConversationKey(merchant.ID, ev.SenderID),
		MerchantID: merchant.ID,
		CustomerID: ev.SenderID,
		PageID:     ev.PageID,
	})
	if err != nil {
		s.log.Error("failed to ensure conversation", "page_id", ev.PageID, "error", err)
		s.sender.SendFallback(ctx, ev.PageID, ev.SenderID, classifier.LanguageEnglish)
		return
	}

	if ev.Kind == KindUnsupported {
		s.ack(ctx, ev, unsupportedContentMessages, conv.Language)
		return
	}

	text, kind, ok := s.resolveText(ctx, merchant, conv, ev)
	if !ok {
		return
	}

	if err := s.handleMessage(ctx, merchant, conv, ev, text, kind); err != nil {
		s.log.Error("message processing failed",
			"conversation_id", conv.ID, "message_id", ev.MessageID, "error", err)
		s.sender.SendFallback(ctx, ev.PageID, ev.SenderID, classifier.DetectLanguage(text))
	}
}

// resolveText produces the message text to classify: as-is for text events,
// via transcription for audio. ok=false means the event was fully handled
// (acknowledged) here.
func (s *Service) resolveText(ctx context.Context, merchant catalog.Merchant, conv convrepo.Conversation, ev InboundEvent) (text, kind string, ok bool) {
	if ev.Kind == KindText {
		return ev.Text, "text", true
	}

	if s.transcriber == nil {
		s.ack(ctx, ev, unsupportedContentMessages, conv.Language)
		return "", "", false
	}

	transcript, err := s.transcriber.Process(ctx, merchant, ev.AudioURL, conv.Language)
	if err != nil {
		if apperr.Is(err, apperr.KindForbidden) || apperr.Is(err, apperr.KindValidation) {
			s.ack(ctx, ev, unsupportedContentMessages, conv.Language)
		} else {
			s.log.Error("transcription failed", "message_id", ev.MessageID, "error", err)
			s.ack(ctx, ev, unclearAudioMessages, conv.Language)
		}
		return "", "", false
	}
	if transcript.Confidence < unclearTranscriptConfidence || transcript.Text == "" {
		s.ack(ctx, ev, unclearAudioMessages, conv.Language)
		return "", "", false
	}
	return transcript.Text, "audio", true
}

func (s *Service) handleMessage(ctx context.Context, merchant catalog.Merchant, conv convrepo.Conversation, ev InboundEvent, text, kind string) error {
	language := classifier.DetectLanguage(text)

	var (
		sentiment classifier.Sentiment
		intent    classifier.Intent
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sentiment, err = s.gateway.AnalyzeSentiment(gctx, text, language)
		return err
	})
	g.Go(func() error {
		var err error
		intent, err = s.gateway.ClassifyIntent(gctx, text, language)
		return err
	})
	if err := g.Wait(); err != nil {
		// The classifier degrades to defaults internally; an error here is
		// unexpected and handled by the caller's fallback.
		return err
	}

	score := sentimentScore(sentiment)
	if err := s.conversations.RecordMessage(ctx, convrepo.Message{
		ConversationID: conv.ID,
		Sender:         convrepo.SenderCustomer,
		Text:           text,
		PlatformMsgID:  ev.MessageID,
		Kind:           kind,
		AudioURL:       ev.AudioURL,
		SentimentScore: score,
		Intent:         intent.Primary,
	}); err != nil {
		return err
	}

	if classifier.ShouldRequestHandover(sentiment) {
		s.conversations.AutoEscalate(ctx, conv.ID, "negative_sentiment", text, score)
	}

	paused, err := s.conversations.IsAIPaused(ctx, conv.ID)
	if err != nil {
		return err
	}
	if paused || !merchant.AIEnabled {
		// A human owns the thread (or the AI is switched off); store only.
		return nil
	}

	reply, err := s.respond(ctx, merchant, conv, ev, text, language, sentiment, intent)
	if err != nil {
		return err
	}
	if reply == "" {
		return nil
	}

	result := s.sender.Send(ctx, ev.PageID, ev.SenderID, reply)
	if result.Outcome == delivery.OutcomeFailed {
		s.sender.SendFallback(ctx, ev.PageID, ev.SenderID, language)
		return nil
	}
	if !result.Delivered() {
		return nil
	}

	return s.conversations.RecordMessage(ctx, convrepo.Message{
		ConversationID: conv.ID,
		Sender:         convrepo.SenderAI,
		Text:           reply,
		PlatformMsgID:  result.MessageID,
		Kind:           "text",
	})
}

// respond produces the outbound text: an order confirmation wins over
// clarification questions, which win over the generated reply.
func (s *Service) respond(ctx context.Context, merchant catalog.Merchant, conv convrepo.Conversation, ev InboundEvent, text, language string, sentiment classifier.Sentiment, intent classifier.Intent) (string, error) {
	products, err := s.merchants.ActiveProducts(ctx, merchant.ID)
	if err != nil {
		return "", err
	}
	catalogProducts := make([]classifier.CatalogProduct, 0, len(products))
	for _, p := range products {
		catalogProducts = append(catalogProducts, classifier.CatalogProduct{
			ID:          p.ID.String(),
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Currency:    p.Currency,
		})
	}

	var (
		reply   classifier.Reply
		outcome orderservice.Outcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reply, err = s.gateway.GenerateReply(gctx, classifier.ReplyRequest{
			MessageText:  text,
			Language:     language,
			BusinessName: merchant.BusinessName,
			WorkingHours: merchant.WorkingHours,
			BusinessRule: merchant.BusinessRule,
			CustomPrompt: merchant.CustomPrompt,
			Catalog:      catalogProducts,
			Sentiment:    sentiment,
			Intent:       intent,
		})
		return err
	})
	if intent.Primary == classifier.IntentOrderPlacement {
		g.Go(func() error {
			history, err := s.conversations.RecentMessages(gctx, conv.ID, historyDepth)
			if err != nil {
				s.log.Error("failed to load history for extraction", "conversation_id", conv.ID, "error", err)
				history = nil
			}
			texts := make([]string, 0, len(history))
			for _, m := range history {
				if m.Sender == convrepo.SenderCustomer && m.PlatformMsgID != ev.MessageID {
					texts = append(texts, m.Text)
				}
			}

			outcome, err = s.orders.ProcessMessage(gctx, merchant, conv.ID, ev.SenderID, ev.MessageID, text, texts)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if outcome.Order != nil {
		return orderConfirmation(language, outcome.Order.OrderNumber, outcome.Order.TotalAmount, outcome.Order.Currency), nil
	}
	if len(outcome.Questions) > 0 {
		return strings.Join(outcome.Questions, "\n"), nil
	}
	return reply.Text, nil
}

func (s *Service) ack(ctx context.Context, ev InboundEvent, messages map[string]string, language string) {
	text, ok := messages[language]
	if !ok {
		text = messages[classifier.LanguageEnglish]
	}
	result := s.sender.Send(ctx, ev.PageID, ev.SenderID, text)
	if !result.Delivered() {
		s.log.Warn("acknowledgement not delivered",
			"page_id", ev.PageID, "recipient_id", ev.SenderID, "outcome", string(result.Outcome))
	}
}

// sentimentScore collapses a sentiment reading into a signed score in
// [-1, 1] for escalation priority.
func sentimentScore(s classifier.Sentiment) float64 {
	switch s.Overall {
	case classifier.SentimentNegative:
		return -s.Confidence
	case classifier.SentimentPositive:
		return s.Confidence
	default:
		return 0
	}
}

var unsupportedContentMessages = map[string]string{
	classifier.LanguageEnglish: "Sorry, I can't process this type of content yet. Please send a text message.",
	classifier.LanguageArabic:  "عذراً، لا أستطيع معالجة هذا النوع من المحتوى. الرجاء إرسال رسالة نصية.",
}

var unclearAudioMessages = map[string]string{
	classifier.LanguageEnglish: "Sorry, I couldn't understand the voice message clearly. Could you type it instead?",
	classifier.LanguageArabic:  "عذراً، لم أتمكن من فهم الرسالة الصوتية بوضوح. هل يمكنك كتابتها؟",
}

func orderConfirmation(language, orderNumber string, total float64, currency string) string {
	if language == classifier.LanguageArabic {
		return fmt.Sprintf("تم إنشاء طلبك %s! المجموع: %.2f %s. سنتواصل معك لتأكيده قريباً.", orderNumber, total, currency)
	}
	return fmt.Sprintf("Your order %s has been created! Total: %.2f %s. We'll be in touch shortly to confirm it.", orderNumber, total, currency)
}
