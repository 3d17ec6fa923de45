package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/telegram"

	"github.com/google/uuid"
)

// proState names the front-office bot's FSM states. The dialogue here is
// shallow — a command menu plus one free-text prompt for naming a new case
// — unlike the tool bots' multi-step sessions.
const (
	proStateIdle          = "idle"
	proStateAwaitingLabel = "awaiting_case_label"
)

// ProHandler is the front office: it onboards specialists and invited
// clients, lets a specialist open a case, and issues link tokens that hand
// a user off to one of the four tool bots.
type ProHandler struct {
	botUsernames map[config.BotKey]string
	users        *repositories.UserRepository
	contexts     *repositories.ContextRepository
	invites      *repositories.InviteRepository
	fsm          *repositories.FSMRepository
	links        *services.LinkTokenService
	tg           telegram.ServiceInterface
}

func NewProHandler(
	botUsernames map[config.BotKey]string,
	users *repositories.UserRepository,
	contexts *repositories.ContextRepository,
	invites *repositories.InviteRepository,
	fsm *repositories.FSMRepository,
	links *services.LinkTokenService,
	tg telegram.ServiceInterface,
) *ProHandler {
	return &ProHandler{
		botUsernames: botUsernames,
		users:        users,
		contexts:     contexts,
		invites:      invites,
		fsm:          fsm,
		links:        links,
		tg:           tg,
	}
}

func (h *ProHandler) Handle(ctx context.Context, u Update) error {
	state, err := h.fsm.Load(ctx, string(config.BotPro), u.ChatID)
	if err != nil {
		return err
	}

	switch {
	case u.Command == "start":
		return h.handleStart(ctx, u, state)
	case u.Command == "newcase":
		return h.handleNewCase(ctx, u)
	case state != nil && state.State == proStateAwaitingLabel:
		return h.handleCaseLabel(ctx, u, state)
	case strings.HasPrefix(u.Command, "issue_"):
		return h.handleIssue(ctx, u, strings.TrimPrefix(u.Command, "issue_"))
	default:
		return h.tg.SendMessage(ctx, u.ChatID, "Доступные команды: /newcase <label>, /issue_interpreter <context_id>, /issue_conceptualizer <context_id>, /issue_simulator <context_id>, /issue_screen <context_id>")
	}
}

func (h *ProHandler) handleStart(ctx context.Context, u Update, state *entities.FSMState) error {
	token := strings.TrimSpace(u.CommandArgs)
	if token == "" {
		if _, err := h.users.GetOrCreate(ctx, u.TelegramUserID, entities.RoleSpecialist); err != nil {
			return err
		}
		return h.tg.SendMessage(ctx, u.ChatID, "Добро пожаловать. Создайте первый кейс командой /newcase <метка>.")
	}

	invite, err := h.invites.FindByToken(ctx, token)
	if err != nil {
		return err
	}
	if invite == nil || invite.Exhausted() || invite.Expired(time.Now().UTC()) {
		return h.tg.SendMessage(ctx, u.ChatID, "Приглашение недействительно или истекло.")
	}
	redeemed, err := h.invites.Redeem(ctx, token)
	if err != nil {
		return err
	}
	if !redeemed {
		return h.tg.SendMessage(ctx, u.ChatID, "Приглашение уже использовано.")
	}

	if _, err := h.users.GetOrCreate(ctx, u.TelegramUserID, entities.RoleClient); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, "Добро пожаловать. Ваш специалист свяжется с вами для дальнейших шагов.")
}

func (h *ProHandler) handleNewCase(ctx context.Context, u Update) error {
	specialist, err := h.users.GetOrCreate(ctx, u.TelegramUserID, entities.RoleSpecialist)
	if err != nil {
		return err
	}

	label := strings.TrimSpace(u.CommandArgs)
	if label == "" {
		if err := h.fsm.Upsert(ctx, &entities.FSMState{
			BotID:  string(config.BotPro),
			ChatID: u.ChatID,
			UserID: specialist.ID,
			Role:   entities.RoleSpecialist,
			State:  proStateAwaitingLabel,
		}); err != nil {
			return err
		}
		return h.tg.SendMessage(ctx, u.ChatID, "Укажите метку клиента для нового кейса.")
	}

	c := &entities.Context{SpecialistID: specialist.ID, ClientLabel: label}
	if err := h.contexts.Create(ctx, c); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, fmt.Sprintf("Кейс создан: %s", c.ID.String()))
}

func (h *ProHandler) handleCaseLabel(ctx context.Context, u Update, state *entities.FSMState) error {
	label := strings.TrimSpace(u.Text)
	if label == "" {
		return h.tg.SendMessage(ctx, u.ChatID, "Метка не может быть пустой. Попробуйте снова.")
	}

	c := &entities.Context{SpecialistID: state.UserID, ClientLabel: label}
	if err := h.contexts.Create(ctx, c); err != nil {
		return err
	}
	if err := h.fsm.Upsert(ctx, &entities.FSMState{
		BotID:  string(config.BotPro),
		ChatID: u.ChatID,
		UserID: state.UserID,
		Role:   entities.RoleSpecialist,
		State:  proStateIdle,
	}); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, fmt.Sprintf("Кейс создан: %s", c.ID.String()))
}

func (h *ProHandler) handleIssue(ctx context.Context, u Update, serviceID string) error {
	contextIDStr := strings.TrimSpace(u.CommandArgs)
	contextID, err := uuid.Parse(contextIDStr)
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Укажите корректный идентификатор кейса.")
	}

	caseCtx, err := h.contexts.FindByID(ctx, contextID)
	if err != nil {
		return err
	}
	if caseCtx == nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Кейс не найден.")
	}

	role := entities.RoleSpecialist
	if serviceID == "screen" {
		role = entities.RoleClient
	}

	resp, err := h.links.Issue(ctx, dto.IssueLinkDTO{
		ServiceID: serviceID,
		ContextID: contextIDStr,
		Role:      string(role),
		SubjectID: u.TelegramUserID,
	})
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Не удалось выпустить ссылку: "+err.Error())
	}

	username := h.botUsernames[config.BotKey(serviceID)]
	link := fmt.Sprintf("https://t.me/%s?start=%s", username, resp.StartParam)
	return h.tg.SendMessage(ctx, u.ChatID, fmt.Sprintf("Ссылка для перехода: %s", link))
}
