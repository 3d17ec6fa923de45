package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"psycheos-gateway/internal/conceptualizer/decisionpolicy"
	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/jsonutil"
	"psycheos-gateway/internal/oracle"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/telegram"

	"github.com/google/uuid"
)

const (
	conceptStateDataCollection = "data_collection"
	conceptStateSocraticDialog = "socratic_dialogue"
	conceptStateComplete       = "complete"

	minObservationLength = 120
	minHypothesisLength  = 30
)

// conceptualizerPayload is the handler's FSM payload: the accumulated
// observation blob during data collection, then the growing hypothesis
// model during the Socratic dialogue.
type conceptualizerPayload struct {
	RunID       uuid.UUID                  `json:"run_id"`
	ContextID   uuid.UUID                  `json:"context_id"`
	Specialist  int64                      `json:"specialist_telegram_id"`
	Observation string                     `json:"observation"`
	Hypotheses  []decisionpolicy.Hypothesis `json:"hypotheses"`
	RedFlags    []decisionpolicy.RedFlag   `json:"red_flags"`
	Turns       int                        `json:"turns"`
}

type extractedHypothesis struct {
	Type        string   `json:"type"`
	Levels      []string `json:"levels"`
	Formulation string   `json:"formulation"`
	Confidence  string   `json:"confidence"`
	Function    string   `json:"function"`
	RedFlag     *struct {
		Severity    string `json:"severity"`
		Description string `json:"description"`
	} `json:"red_flag,omitempty"`
}

// ConceptualizerHandler drives the structural-model-building Socratic
// dialogue: it accumulates hypotheses via oracle extraction calls and
// consults internal/conceptualizer/decisionpolicy for what to ask next.
type ConceptualizerHandler struct {
	fsm       *repositories.FSMRepository
	artifacts *services.ArtifactService
	links     *services.LinkTokenService
	oracle    oracle.Client
	tg        telegram.ServiceInterface
}

func NewConceptualizerHandler(
	fsm *repositories.FSMRepository,
	artifacts *services.ArtifactService,
	links *services.LinkTokenService,
	oracleClient oracle.Client,
	tg telegram.ServiceInterface,
) *ConceptualizerHandler {
	return &ConceptualizerHandler{fsm: fsm, artifacts: artifacts, links: links, oracle: oracleClient, tg: tg}
}

func (h *ConceptualizerHandler) Handle(ctx context.Context, u Update) error {
	state, err := h.fsm.Load(ctx, string(config.BotConceptualizer), u.ChatID)
	if err != nil {
		return err
	}

	if u.Command == "start" {
		return h.handleStart(ctx, u)
	}
	if state == nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Пройдите по ссылке от специалиста, чтобы начать сессию.")
	}

	var payload conceptualizerPayload
	if len(state.Payload) > 0 {
		_ = json.Unmarshal(state.Payload, &payload)
	}

	switch state.State {
	case conceptStateDataCollection:
		return h.handleDataCollection(ctx, u, payload)
	case conceptStateSocraticDialog:
		return h.handleDialogueTurn(ctx, u, payload)
	default:
		return h.tg.SendMessage(ctx, u.ChatID, "Сессия концептуализации уже завершена.")
	}
}

func (h *ConceptualizerHandler) handleStart(ctx context.Context, u Update) error {
	token := strings.TrimSpace(u.CommandArgs)
	verified, err := h.links.Verify(ctx, dto.VerifyLinkDTO{
		RawToken:  token,
		ServiceID: string(config.BotConceptualizer),
		SubjectID: u.TelegramUserID,
	})
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Ссылка недействительна: "+err.Error())
	}

	payload := conceptualizerPayload{RunID: verified.RunID, ContextID: verified.ContextID, Specialist: u.TelegramUserID}
	if err := h.savePayload(ctx, u.ChatID, conceptStateDataCollection, payload); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, "Опишите случай свободным текстом. Когда закончите, напишите «готово».")
}

func (h *ConceptualizerHandler) handleDataCollection(ctx context.Context, u Update, payload conceptualizerPayload) error {
	text := strings.TrimSpace(u.Text)
	trigger := strings.EqualFold(text, "готово") || strings.EqualFold(text, "готов") || strings.EqualFold(text, "done")

	if !trigger {
		payload.Observation = strings.TrimSpace(payload.Observation + "\n" + text)
		return h.savePayload(ctx, u.ChatID, conceptStateDataCollection, payload)
	}

	if utf8.RuneCountInString(payload.Observation) < minObservationLength {
		return h.tg.SendMessage(ctx, u.ChatID, "Материала пока недостаточно для начала диалога. Добавьте больше деталей.")
	}

	if err := h.savePayload(ctx, u.ChatID, conceptStateSocraticDialog, payload); err != nil {
		return err
	}
	return h.askNextQuestion(ctx, u.ChatID, payload)
}

func (h *ConceptualizerHandler) handleDialogueTurn(ctx context.Context, u Update, payload conceptualizerPayload) error {
	text := strings.TrimSpace(u.Text)
	payload.Turns++

	if isSubstantiveTurn(text) {
		hyp, flag, err := h.extractHypothesis(ctx, text)
		if err == nil && hyp != nil {
			payload.Hypotheses = append(payload.Hypotheses, *hyp)
		}
		if flag != nil {
			payload.RedFlags = append(payload.RedFlags, *flag)
		}
	}

	session := h.buildSession(payload)
	selector := decisionpolicy.NewSelector(session)
	shouldContinue, _ := selector.ShouldContinueDialogue()

	if !shouldContinue {
		return h.finish(ctx, u.ChatID, payload)
	}

	if err := h.savePayload(ctx, u.ChatID, conceptStateSocraticDialog, payload); err != nil {
		return err
	}
	return h.askNextQuestion(ctx, u.ChatID, payload)
}

func (h *ConceptualizerHandler) askNextQuestion(ctx context.Context, chatID int64, payload conceptualizerPayload) error {
	session := h.buildSession(payload)
	selection := decisionpolicy.NewSelector(session).SelectNextQuestion()
	return h.tg.SendMessage(ctx, chatID, selection.QuestionText)
}

func (h *ConceptualizerHandler) extractHypothesis(ctx context.Context, text string) (*decisionpolicy.Hypothesis, *decisionpolicy.RedFlag, error) {
	raw, err := h.oracle.Ask(ctx, extractionPrompt, text, "claude-sonnet-4-5", 600)
	if err != nil {
		return nil, nil, err
	}

	var extracted extractedHypothesis
	if err := jsonutil.ExtractAndRepair(raw, &extracted); err != nil {
		return nil, nil, err
	}

	levels := make([]decisionpolicy.PsycheLevel, 0, len(extracted.Levels))
	for _, l := range extracted.Levels {
		levels = append(levels, decisionpolicy.PsycheLevel(l))
	}

	hyp := decisionpolicy.Hypothesis{
		ID:          uuid.New().String(),
		Type:        decisionpolicy.HypothesisType(extracted.Type),
		Levels:      levels,
		Formulation: extracted.Formulation,
		Confidence:  decisionpolicy.ConfidenceLevel(extracted.Confidence),
		Function:    extracted.Function,
	}
	hyp = decisionpolicy.PromoteManagerial(hyp)

	var flag *decisionpolicy.RedFlag
	if extracted.RedFlag != nil {
		flag = &decisionpolicy.RedFlag{
			Severity:    decisionpolicy.RedFlagSeverity(extracted.RedFlag.Severity),
			Description: extracted.RedFlag.Description,
		}
	}

	return &hyp, flag, nil
}

func (h *ConceptualizerHandler) finish(ctx context.Context, chatID int64, payload conceptualizerPayload) error {
	session := h.buildSession(payload)

	layerA, errA := h.oracle.Ask(ctx, layerAPrompt, encodeSession(session), "claude-sonnet-4-5", 1200)
	layerB, errB := h.oracle.Ask(ctx, layerBPrompt, encodeSession(session), "claude-sonnet-4-5", 1200)
	layerC, errC := h.oracle.Ask(ctx, layerCPrompt, encodeSession(session), "claude-sonnet-4-5", 1200)
	if errA != nil {
		layerA = "Не удалось сформировать слой A."
	}
	if errB != nil {
		layerB = "Не удалось сформировать слой B."
	}
	if errC != nil {
		layerC = "Не удалось сформировать слой C."
	}

	for _, layer := range []string{layerA, layerB, layerC} {
		if err := h.tg.SendMessage(ctx, chatID, layer); err != nil {
			return err
		}
	}

	artifact, _ := json.Marshal(map[string]interface{}{
		"hypotheses": payload.Hypotheses,
		"layer_a":    layerA,
		"layer_b":    layerB,
		"layer_c":    layerC,
	})
	summary := fmt.Sprintf("%d hypotheses, %d turns", len(payload.Hypotheses), payload.Turns)
	if err := h.artifacts.Save(ctx, payload.RunID, payload.ContextID, string(config.BotConceptualizer), payload.Specialist, artifact, summary); err != nil {
		return err
	}

	return h.savePayload(ctx, chatID, conceptStateComplete, payload)
}

func (h *ConceptualizerHandler) buildSession(payload conceptualizerPayload) decisionpolicy.SessionState {
	return decisionpolicy.SessionState{
		SessionID:  payload.RunID.String(),
		Hypotheses: payload.Hypotheses,
		Progress:   decisionpolicy.Progress{DialogueTurns: payload.Turns},
		RedFlags:   payload.RedFlags,
		UpdatedAt:  time.Time{},
	}
}

func (h *ConceptualizerHandler) savePayload(ctx context.Context, chatID int64, state string, payload conceptualizerPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.fsm.Upsert(ctx, &entities.FSMState{
		BotID:   string(config.BotConceptualizer),
		ChatID:  chatID,
		Role:    entities.RoleSpecialist,
		State:   state,
		Payload: raw,
	})
}

func isSubstantiveTurn(text string) bool {
	if utf8.RuneCountInString(text) <= minHypothesisLength {
		return false
	}
	return !strings.Contains(text, "?")
}

func encodeSession(session decisionpolicy.SessionState) string {
	raw, _ := json.Marshal(session)
	return string(raw)
}

const extractionPrompt = "Извлеки одну структурную гипотезу из сообщения специалиста. Верни JSON {\"type\": \"structural|functional|dynamic|managerial\", \"levels\": [\"L0\"-\"L4\"], \"formulation\": \"...\", \"confidence\": \"weak|working|dominant|conditional\", \"function\": \"...\"}."
const layerAPrompt = "Сформируй Слой A итоговой концептуализации (структурная карта) на основе накопленных гипотез."
const layerBPrompt = "Сформируй Слой B итоговой концептуализации (точки управления, управленческие гипотезы)."
const layerCPrompt = "Сформируй Слой C итоговой концептуализации (рекомендации к действию)."
