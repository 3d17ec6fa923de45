package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/screening"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/telegram"

	"github.com/google/uuid"
)

const (
	screenStateAwaitingLink = "awaiting_link"
	screenStatePhase1       = "phase1"
	screenStatePhase2       = "phase2"
	screenStatePhase3       = "phase3"
	screenStateCompleted    = "completed"
)

// screenPayload is the handler's private FSM payload: which screen is
// currently shown, so the next callback answer can be matched to it.
type screenPayload struct {
	AssessmentID uuid.UUID `json:"assessment_id"`
	RunID        uuid.UUID `json:"run_id"`
	Phase1Index  int       `json:"phase1_index"`
	Phase2Node   string    `json:"phase2_node,omitempty"`
}

// ScreenHandler drives the client-facing side of the three-phase screening
// orchestrator: /start verification, rendering each screen as an inline
// keyboard, and feeding callback answers back into the orchestrator.
type ScreenHandler struct {
	fsm          *repositories.FSMRepository
	assessments  *repositories.ScreeningRepository
	contexts     *repositories.ContextRepository
	users        *repositories.UserRepository
	artifacts    *services.ArtifactService
	links        *services.LinkTokenService
	orchestrator *screening.Orchestrator
	tg           telegram.ServiceInterface
}

func NewScreenHandler(
	fsm *repositories.FSMRepository,
	assessments *repositories.ScreeningRepository,
	contexts *repositories.ContextRepository,
	users *repositories.UserRepository,
	artifacts *services.ArtifactService,
	links *services.LinkTokenService,
	orchestrator *screening.Orchestrator,
	tg telegram.ServiceInterface,
) *ScreenHandler {
	return &ScreenHandler{
		fsm:          fsm,
		assessments:  assessments,
		contexts:     contexts,
		users:        users,
		artifacts:    artifacts,
		links:        links,
		orchestrator: orchestrator,
		tg:           tg,
	}
}

func (h *ScreenHandler) Handle(ctx context.Context, u Update) error {
	state, err := h.fsm.Load(ctx, string(config.BotScreen), u.ChatID)
	if err != nil {
		return err
	}

	if u.Command == "start" {
		return h.handleStart(ctx, u)
	}

	if state == nil || state.State == screenStateAwaitingLink {
		return h.tg.SendMessage(ctx, u.ChatID, "Пройдите по ссылке от специалиста, чтобы начать скрининг.")
	}

	var payload screenPayload
	if len(state.Payload) > 0 {
		_ = json.Unmarshal(state.Payload, &payload)
	}

	assessment, err := h.assessments.FindByID(ctx, payload.AssessmentID)
	if err != nil {
		return err
	}
	if assessment == nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Сессия скрининга не найдена. Запросите новую ссылку.")
	}

	selected := parseSelectedOptions(u.CallbackData)

	var action screening.Action
	switch state.State {
	case screenStatePhase1:
		action, err = h.orchestrator.ProcessPhase1Response(ctx, assessment, payload.Phase1Index, selected)
	case screenStatePhase2:
		action, err = h.orchestrator.ProcessPhase2Response(ctx, assessment, payload.Phase2Node, selected)
	case screenStatePhase3:
		action, err = h.orchestrator.ProcessPhase3Response(ctx, assessment, payload.Phase2Node, selected)
	default:
		return h.tg.SendMessage(ctx, u.ChatID, "Скрининг уже завершён.")
	}
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Произошла ошибка обработки ответа. Попробуйте ещё раз.")
	}

	return h.applyAction(ctx, u, state, assessment, action)
}

func (h *ScreenHandler) handleStart(ctx context.Context, u Update) error {
	token := strings.TrimSpace(u.CommandArgs)
	if token == "" {
		return h.tg.SendMessage(ctx, u.ChatID, "Перейдите по ссылке от специалиста.")
	}

	verified, err := h.links.Verify(ctx, dto.VerifyLinkDTO{
		RawToken:  token,
		ServiceID: string(config.BotScreen),
		SubjectID: u.TelegramUserID,
	})
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Ссылка недействительна: "+err.Error())
	}
	jti, _ := uuid.Parse(token)

	caseCtx, err := h.contexts.FindByID(ctx, verified.ContextID)
	if err != nil {
		return err
	}
	var specialistTelegramID int64
	if caseCtx != nil {
		if specialist, err := h.users.FindByID(ctx, caseCtx.SpecialistID); err == nil && specialist != nil {
			specialistTelegramID = specialist.TelegramID
		}
	}

	assessment := &entities.ScreeningAssessment{
		ContextID:        verified.ContextID,
		LinkTokenJTI:     jti,
		SpecialistUserID: specialistTelegramID,
		ClientChatID:     u.ChatID,
		Phase:            entities.PhaseOne,
		Status:           entities.AssessmentStatusInProgress,
	}
	if err := h.assessments.Create(ctx, assessment); err != nil {
		return err
	}

	action, err := h.orchestrator.StartAssessment(ctx, assessment)
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Не удалось начать скрининг. Попробуйте позже.")
	}

	payload := screenPayload{AssessmentID: assessment.ID, RunID: verified.RunID, Phase1Index: 0}
	if err := h.saveFSM(ctx, u.ChatID, screenStatePhase1, payload); err != nil {
		return err
	}
	return h.sendScreen(ctx, u.ChatID, action.Screen)
}

func (h *ScreenHandler) applyAction(ctx context.Context, u Update, state *entities.FSMState, assessment *entities.ScreeningAssessment, action screening.Action) error {
	var prevPayload screenPayload
	if len(state.Payload) > 0 {
		_ = json.Unmarshal(state.Payload, &prevPayload)
	}

	if action.Kind == "complete" {
		summary, _ := json.Marshal(map[string]interface{}{
			"assessment_id": assessment.ID,
			"confidence":    assessment.Confidence,
		})
		if err := h.artifacts.Save(ctx, prevPayload.RunID, assessment.ContextID, string(config.BotScreen), assessment.SpecialistUserID, action.ReportJSON, string(summary)); err != nil {
			return err
		}
		if err := h.saveFSM(ctx, u.ChatID, screenStateCompleted, screenPayload{AssessmentID: assessment.ID, RunID: prevPayload.RunID}); err != nil {
			return err
		}
		return h.tg.SendMessage(ctx, u.ChatID, "Скрининг завершён.\n\n"+action.ReportText)
	}

	var nextState string
	payload := screenPayload{AssessmentID: assessment.ID, RunID: prevPayload.RunID}
	switch action.Phase {
	case entities.PhaseOne:
		nextState = screenStatePhase1
		payload.Phase1Index = prevPayload.Phase1Index + 1
	case entities.PhaseTwo:
		nextState = screenStatePhase2
		payload.Phase2Node = action.Phase2Node
	case entities.PhaseThree:
		nextState = screenStatePhase3
		payload.Phase2Node = action.Phase2Node
	}

	if err := h.saveFSM(ctx, u.ChatID, nextState, payload); err != nil {
		return err
	}
	return h.sendScreen(ctx, u.ChatID, action.Screen)
}

func (h *ScreenHandler) saveFSM(ctx context.Context, chatID int64, state string, payload screenPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.fsm.Upsert(ctx, &entities.FSMState{
		BotID:   string(config.BotScreen),
		ChatID:  chatID,
		Role:    entities.RoleClient,
		State:   state,
		Payload: raw,
	})
}

func (h *ScreenHandler) sendScreen(ctx context.Context, chatID int64, screen *screening.Screen) error {
	if screen == nil {
		return h.tg.SendMessage(ctx, chatID, "Скрининг продолжается.")
	}

	var rows [][]tgButton
	for i, opt := range screen.Options {
		rows = append(rows, []tgButton{{text: opt.Text, data: fmt.Sprintf("opt:%d", i)}})
	}
	return sendWithButtons(ctx, h.tg, chatID, screen.Question, rows)
}

func parseSelectedOptions(callbackData string) []int {
	data := strings.TrimPrefix(callbackData, "opt:")
	idx, err := strconv.Atoi(data)
	if err != nil {
		return nil
	}
	return []int{idx}
}
