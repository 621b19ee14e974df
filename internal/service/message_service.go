package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"campus-cart/internal/domain"
	"campus-cart/internal/realtime"
	"campus-cart/internal/repository"
)

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrValidation                  = errors.New("validation failed")
	ErrNotFound                    = errors.New("not found")
	ErrSelfMessage                 = errors.New("cannot message yourself")
	ErrRateLimited                 = errors.New("rate limited")
)

// PushRegistry es la vista del registro de conexiones que usa la entrega.
type PushRegistry interface {
	Lookup(userID string) (realtime.Handle, bool)
}

// MessageService orquesta persistencia y entrega push de mensajes.
type MessageService struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	users         repository.UserDirectory
	products      repository.ProductCatalog
	push          PushRegistry
	limiter       SendRateLimiter
	maxBodyLength int
	now           func() time.Time
}

type MessageServiceOptions struct {
	Limiter       SendRateLimiter
	MaxBodyLength int
}

func NewMessageService(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	users repository.UserDirectory,
	products repository.ProductCatalog,
	push PushRegistry,
	opts MessageServiceOptions,
) *MessageService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{
		logger:        logger,
		conversations: conversations,
		users:         users,
		products:      products,
		push:          push,
		limiter:       opts.Limiter,
		maxBodyLength: opts.MaxBodyLength,
		now:           time.Now,
	}
}

// SendFirstMessage abre (o reutiliza) la conversación con el vendedor del
// producto y agrega el mensaje. El resultado del push no afecta la respuesta.
func (s *MessageService) SendFirstMessage(ctx context.Context, callerID, productID, body string) (domain.Message, domain.ConversationDetail, error) {
	if s == nil || s.conversations == nil || s.products == nil {
		return domain.Message{}, domain.ConversationDetail{}, ErrMessageServiceNotConfigured
	}

	productID = strings.TrimSpace(productID)
	body, err := s.normalizeBody(body)
	if err != nil {
		return domain.Message{}, domain.ConversationDetail{}, err
	}
	if productID == "" {
		return domain.Message{}, domain.ConversationDetail{}, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	if err := s.allow(callerID); err != nil {
		return domain.Message{}, domain.ConversationDetail{}, err
	}

	sellerID, err := s.products.ResolveSeller(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return domain.Message{}, domain.ConversationDetail{}, ErrNotFound
	}
	if err != nil {
		return domain.Message{}, domain.ConversationDetail{}, fmt.Errorf("resolve seller: %w", err)
	}
	if sellerID == callerID {
		return domain.Message{}, domain.ConversationDetail{}, ErrSelfMessage
	}

	conv, err := s.conversations.FindOrCreate(ctx, productID, callerID, sellerID)
	if err != nil {
		return domain.Message{}, domain.ConversationDetail{}, fmt.Errorf("find or create conversation: %w", err)
	}

	conv, msg, err := s.append(ctx, conv.ID, callerID, body)
	if err != nil {
		return domain.Message{}, domain.ConversationDetail{}, err
	}

	s.deliver(ctx, conv, msg)
	return msg, s.detail(ctx, conv), nil
}

// Reply agrega un mensaje a una conversación existente del caller.
func (s *MessageService) Reply(ctx context.Context, callerID, conversationID, body string) (domain.Message, error) {
	if s == nil || s.conversations == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}

	body, err := s.normalizeBody(body)
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.allow(callerID); err != nil {
		return domain.Message{}, err
	}

	conv, msg, err := s.append(ctx, strings.TrimSpace(conversationID), callerID, body)
	if err != nil {
		return domain.Message{}, err
	}

	s.deliver(ctx, conv, msg)
	return msg, nil
}

func (s *MessageService) ListConversations(ctx context.Context, userID string) ([]domain.ConversationListItem, error) {
	if s == nil || s.conversations == nil {
		return nil, ErrMessageServiceNotConfigured
	}
	summaries, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	emails := map[string]string{}
	return lo.Map(summaries, func(sum domain.ConversationSummary, _ int) domain.ConversationListItem {
		return domain.ConversationListItem{
			ID:           sum.ID,
			Product:      s.productView(ctx, sum.ProductID),
			Participants: s.participantViews(ctx, sum.Participants, emails),
			LastUpdated:  sum.LastUpdated,
		}
	}), nil
}

func (s *MessageService) GetConversation(ctx context.Context, conversationID, userID string) (domain.ConversationDetail, error) {
	if s == nil || s.conversations == nil {
		return domain.ConversationDetail{}, ErrMessageServiceNotConfigured
	}
	conv, err := s.conversations.GetForUser(ctx, strings.TrimSpace(conversationID), userID)
	if errors.Is(err, repository.ErrConversationNotFound) {
		return domain.ConversationDetail{}, ErrNotFound
	}
	if err != nil {
		return domain.ConversationDetail{}, fmt.Errorf("get conversation: %w", err)
	}
	return s.detail(ctx, conv), nil
}

func (s *MessageService) normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", fmt.Errorf("%w: message body is required", ErrValidation)
	}
	if s.maxBodyLength > 0 && utf8.RuneCountInString(body) > s.maxBodyLength {
		return "", fmt.Errorf("%w: message body exceeds %d characters", ErrValidation, s.maxBodyLength)
	}
	return body, nil
}

func (s *MessageService) allow(callerID string) error {
	if s.limiter == nil {
		return nil
	}
	if !s.limiter.Allow(callerID) {
		return ErrRateLimited
	}
	return nil
}

// append persiste el mensaje; NotParticipant se colapsa en NotFound para no
// revelar qué conversaciones existen.
func (s *MessageService) append(ctx context.Context, conversationID, callerID, body string) (domain.Conversation, domain.Message, error) {
	conv, err := s.conversations.AppendMessage(ctx, conversationID, callerID, domain.Message{
		SenderID:  callerID,
		Body:      body,
		Timestamp: s.now(),
	})
	switch {
	case errors.Is(err, repository.ErrConversationNotFound), errors.Is(err, repository.ErrNotParticipant):
		return domain.Conversation{}, domain.Message{}, ErrNotFound
	case err != nil:
		return domain.Conversation{}, domain.Message{}, fmt.Errorf("append message: %w", err)
	}

	msg, ok := conv.LastMessage()
	if !ok {
		return domain.Conversation{}, domain.Message{}, fmt.Errorf("append message: conversation %s has no messages", conv.ID)
	}
	return conv, msg, nil
}

// deliver intenta el push al otro participante. Cualquier falla se registra y
// se descarta: el mensaje ya está persistido.
func (s *MessageService) deliver(ctx context.Context, conv domain.Conversation, msg domain.Message) {
	if s.push == nil {
		return
	}
	recipientID, ok := conv.OtherParticipant(msg.SenderID)
	if !ok {
		return
	}
	logger := s.logger.With(
		zap.String("conversation_id", conv.ID),
		zap.String("recipient_id", recipientID),
	)

	handle, ok := s.push.Lookup(recipientID)
	if !ok || !handle.Open() {
		logger.Debug("recipient offline, push skipped")
		return
	}

	payload, err := realtime.EncodeNewMessage(realtime.NewMessageData{
		ConversationID: conv.ID,
		Message: realtime.PushMessage{
			SenderID:  msg.SenderID,
			Sender:    realtime.PushSender{ID: msg.SenderID, Email: s.email(ctx, msg.SenderID)},
			Body:      msg.Body,
			Timestamp: msg.Timestamp,
		},
	})
	if err != nil {
		logger.Warn("encode push failed", zap.Error(err))
		return
	}
	if err := handle.Send(payload); err != nil {
		logger.Warn("push send failed", zap.Error(err))
		return
	}
	logger.Debug("push delivered")
}

func (s *MessageService) detail(ctx context.Context, conv domain.Conversation) domain.ConversationDetail {
	emails := map[string]string{}
	participants := s.participantViews(ctx, conv.Participants, emails)
	return domain.ConversationDetail{
		ID:           conv.ID,
		Product:      s.productView(ctx, conv.ProductID),
		Participants: participants,
		Messages: lo.Map(conv.Messages, func(m domain.Message, _ int) domain.MessageView {
			return domain.MessageView{
				SenderID:  m.SenderID,
				Sender:    domain.ParticipantView{ID: m.SenderID, Email: emails[m.SenderID]},
				Body:      m.Body,
				Timestamp: m.Timestamp,
			}
		}),
		LastUpdated: conv.LastUpdated,
	}
}

// participantViews resuelve emails usando cache como memo por request.
func (s *MessageService) participantViews(ctx context.Context, p domain.Participants, cache map[string]string) []domain.ParticipantView {
	return lo.Map(p[:], func(id string, _ int) domain.ParticipantView {
		email, ok := cache[id]
		if !ok {
			email = s.email(ctx, id)
			cache[id] = email
		}
		return domain.ParticipantView{ID: id, Email: email}
	})
}

func (s *MessageService) email(ctx context.Context, userID string) string {
	if s.users == nil {
		return ""
	}
	email, err := s.users.ResolveEmail(ctx, userID)
	if err != nil {
		s.logger.Debug("resolve email failed", zap.String("user_id", userID), zap.Error(err))
		return ""
	}
	return email
}

func (s *MessageService) productView(ctx context.Context, productID string) domain.ProductView {
	view := domain.ProductView{ID: productID}
	if s.products == nil {
		return view
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		s.logger.Debug("resolve product failed", zap.String("product_id", productID), zap.Error(err))
		return view
	}
	view.Name = p.Name
	view.ImageURL = p.ImageURL
	return view
}
