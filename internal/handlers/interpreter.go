package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/jsonutil"
	"psycheos-gateway/internal/oracle"
	"psycheos-gateway/internal/policy"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/telegram"

	"github.com/google/uuid"
)

const (
	interpreterStateActive            = "active"
	interpreterStateIntake            = "intake"
	interpreterStateClarificationLoop = "clarification_loop"
	interpreterStateCompleted         = "completed"

	maxClarificationRounds = 2
)

// interpreterPayload is the one concrete FSM payload for this handler (spec
// §9 design note): accumulated material, the run it belongs to, the
// operating mode, and how many clarification rounds have been spent.
type interpreterPayload struct {
	RunID              uuid.UUID `json:"run_id"`
	ContextID          uuid.UUID `json:"context_id"`
	SpecialistTelegram int64     `json:"specialist_telegram_id"`
	Material           string    `json:"material"`
	Mode               string    `json:"mode"`
	ClarificationCount int       `json:"clarification_count"`
}

type materialCheck struct {
	Completeness string `json:"completeness"`
}

// InterpreterHandler runs the single-session dream/material interpretation
// dialogue: intake, optional clarification, interpretation, policy
// validation and repair, artifact persistence.
type InterpreterHandler struct {
	fsm       *repositories.FSMRepository
	contexts  *repositories.ContextRepository
	users     *repositories.UserRepository
	artifacts *services.ArtifactService
	links     *services.LinkTokenService
	oracle    oracle.Client
	policy    *policy.Engine
	tg        telegram.ServiceInterface
}

func NewInterpreterHandler(
	fsm *repositories.FSMRepository,
	contexts *repositories.ContextRepository,
	users *repositories.UserRepository,
	artifacts *services.ArtifactService,
	links *services.LinkTokenService,
	oracleClient oracle.Client,
	policyEngine *policy.Engine,
	tg telegram.ServiceInterface,
) *InterpreterHandler {
	return &InterpreterHandler{
		fsm: fsm, contexts: contexts, users: users, artifacts: artifacts,
		links: links, oracle: oracleClient, policy: policyEngine, tg: tg,
	}
}

func (h *InterpreterHandler) Handle(ctx context.Context, u Update) error {
	state, err := h.fsm.Load(ctx, string(config.BotInterpreter), u.ChatID)
	if err != nil {
		return err
	}

	if u.Command == "start" {
		return h.handleStart(ctx, u)
	}
	if state == nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Пройдите по ссылке от специалиста, чтобы начать сессию.")
	}

	var payload interpreterPayload
	if len(state.Payload) > 0 {
		_ = json.Unmarshal(state.Payload, &payload)
	}

	switch state.State {
	case interpreterStateActive, interpreterStateIntake:
		return h.handleIntakeTurn(ctx, u, payload)
	case interpreterStateClarificationLoop:
		return h.handleClarificationTurn(ctx, u, payload)
	default:
		return h.tg.SendMessage(ctx, u.ChatID, "Сессия уже завершена. Запросите новую ссылку для следующей сессии.")
	}
}

func (h *InterpreterHandler) handleStart(ctx context.Context, u Update) error {
	token := strings.TrimSpace(u.CommandArgs)
	verified, err := h.links.Verify(ctx, dto.VerifyLinkDTO{
		RawToken:  token,
		ServiceID: string(config.BotInterpreter),
		SubjectID: u.TelegramUserID,
	})
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Ссылка недействительна: "+err.Error())
	}

	payload := interpreterPayload{
		RunID:              verified.RunID,
		ContextID:          verified.ContextID,
		SpecialistTelegram: u.TelegramUserID,
		Mode:               string(policy.ModeStandard),
	}
	if err := h.savePayload(ctx, u.ChatID, interpreterStateActive, payload); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, "Опишите материал для интерпретации (сон, образ, ситуацию).")
}

func (h *InterpreterHandler) handleIntakeTurn(ctx context.Context, u Update, payload interpreterPayload) error {
	payload.Material = strings.TrimSpace(payload.Material + "\n" + u.Text)

	reply, err := h.oracle.Ask(ctx, intakePrompt, payload.Material, "claude-haiku-4-5", 400)
	if err != nil {
		return h.oracleFailure(ctx, u, payload)
	}

	if len(reply) < 200 && strings.Contains(reply, "?") {
		if err := h.savePayload(ctx, u.ChatID, interpreterStateIntake, payload); err != nil {
			return err
		}
		return h.tg.SendMessage(ctx, u.ChatID, reply)
	}

	return h.runMaterialCheck(ctx, u, payload)
}

func (h *InterpreterHandler) runMaterialCheck(ctx context.Context, u Update, payload interpreterPayload) error {
	raw, err := h.oracle.Ask(ctx, materialCheckPrompt, payload.Material, "claude-haiku-4-5", 200)
	completeness := classifyByKeyword(payload.Material)
	if err == nil {
		var check materialCheck
		if jsonutil.ExtractAndRepair(raw, &check) == nil && check.Completeness != "" {
			completeness = check.Completeness
		}
	}

	if completeness == "sufficient" {
		return h.runInterpretation(ctx, u, payload)
	}

	payload.ClarificationCount++
	if payload.ClarificationCount > maxClarificationRounds {
		return h.runInterpretation(ctx, u, payload)
	}

	question, err := h.oracle.Ask(ctx, clarificationPrompt, payload.Material, "claude-haiku-4-5", 200)
	if err != nil {
		question = "Расскажите подробнее об этом материале — какие детали вам запомнились сильнее всего?"
	}
	if err := h.savePayload(ctx, u.ChatID, interpreterStateClarificationLoop, payload); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, question)
}

func (h *InterpreterHandler) handleClarificationTurn(ctx context.Context, u Update, payload interpreterPayload) error {
	payload.Material = strings.TrimSpace(payload.Material + "\n" + u.Text)
	return h.runMaterialCheck(ctx, u, payload)
}

func (h *InterpreterHandler) runInterpretation(ctx context.Context, u Update, payload interpreterPayload) error {
	systemPrompt := standardInterpretationPrompt
	if payload.Mode == string(policy.ModeLowData) {
		systemPrompt = lowDataInterpretationPrompt
	}

	raw, err := h.oracle.Ask(ctx, systemPrompt, payload.Material, "claude-sonnet-4-5", 2000)
	if err != nil {
		if payload.Mode != string(policy.ModeLowData) {
			payload.Mode = string(policy.ModeLowData)
			return h.runInterpretation(ctx, u, payload)
		}
		return h.oracleFailure(ctx, u, payload)
	}

	var output policy.Output
	if jsonutil.ExtractAndRepair(raw, &output) != nil {
		if payload.Mode != string(policy.ModeLowData) {
			payload.Mode = string(policy.ModeLowData)
			return h.runInterpretation(ctx, u, payload)
		}
		return h.oracleFailure(ctx, u, payload)
	}
	output.Meta.Mode = policy.Mode(payload.Mode)

	validation := h.policy.Validate(output)
	for attempt := 0; !validation.Valid && attempt < 2; attempt++ {
		output, _ = h.policy.Repair(output, validation)
		validation = h.policy.Validate(output)
	}

	payloadJSON, _ := json.Marshal(output)
	if err := h.tg.SendMessage(ctx, u.ChatID, formatInterpretation(output)); err != nil {
		return err
	}
	if err := h.tg.SendMessage(ctx, u.ChatID, string(payloadJSON)); err != nil {
		return err
	}

	summary := fmt.Sprintf("%d hypotheses, mode=%s", len(output.InterpretativeHypotheses), output.Meta.Mode)
	if err := h.artifacts.Save(ctx, payload.RunID, payload.ContextID, string(config.BotInterpreter), payload.SpecialistTelegram, payloadJSON, summary); err != nil {
		return err
	}

	return h.savePayload(ctx, u.ChatID, interpreterStateCompleted, payload)
}

func (h *InterpreterHandler) oracleFailure(ctx context.Context, u Update, payload interpreterPayload) error {
	_ = h.savePayload(ctx, u.ChatID, interpreterStateActive, payload)
	return h.tg.SendMessage(ctx, u.ChatID, "Не удалось обработать материал. Попробуйте отправить сообщение ещё раз через некоторое время.")
}

func (h *InterpreterHandler) savePayload(ctx context.Context, chatID int64, state string, payload interpreterPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.fsm.Upsert(ctx, &entities.FSMState{
		BotID:   string(config.BotInterpreter),
		ChatID:  chatID,
		Role:    entities.RoleSpecialist,
		State:   state,
		Payload: raw,
	})
}

func classifyByKeyword(material string) string {
	lower := strings.ToLower(material)
	switch {
	case len(material) < 40:
		return "fragmentary"
	case strings.Contains(lower, "не помню") || strings.Contains(lower, "обрывками"):
		return "partial"
	default:
		return "sufficient"
	}
}

func formatInterpretation(o policy.Output) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Режим: %s\nУверенность: %s\n\n", o.Meta.Mode, o.UncertaintyProfile.OverallConfidence))
	for i, h := range o.InterpretativeHypotheses {
		b.WriteString(fmt.Sprintf("%d. %s\n   Ограничения: %s\n", i+1, h.HypothesisText, h.Limitations))
	}
	return b.String()
}

const intakePrompt = "Ты — модуль первичного приёма в системе психологической интерпретации. Если материала недостаточно, задай один короткий уточняющий вопрос."
const materialCheckPrompt = "Оцени полноту предоставленного материала для интерпретации. Ответь JSON {\"completeness\": \"sufficient\"|\"partial\"|\"fragmentary\"}."
const clarificationPrompt = "Задай один феноменологический уточняющий вопрос о предоставленном материале."
const standardInterpretationPrompt = "Ты — модуль интерпретации. Верни JSON с полями meta, interpretative_hypotheses, uncertainty_profile, policy_flags."
const lowDataInterpretationPrompt = "Ты — модуль интерпретации в режиме LOW_DATA (ограниченные данные). Верни не более одной гипотезы с низкой уверенностью в том же JSON формате."
