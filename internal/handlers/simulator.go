package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"psycheos-gateway/internal/domainmath"
	"psycheos-gateway/internal/dto"
	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/oracle"
	"psycheos-gateway/internal/render"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/services"
	"psycheos-gateway/internal/simulator"
	"psycheos-gateway/pkg/config"
	"psycheos-gateway/pkg/telegram"

	"github.com/google/uuid"
)

const (
	simStateAwaitingMode  = "awaiting_mode"
	simStateAwaitingCase  = "awaiting_case"
	simStateAwaitingCrisis = "awaiting_crisis"
	simStateAwaitingGoal  = "awaiting_goal"
	simStateActive        = "active"
	simStateConfirmEnd    = "confirm_end"
	simStateCompleted     = "completed"
)

// simulatorPayload is the handler's FSM payload: setup choices plus the
// rolling conversation and iteration log for an active session.
type simulatorPayload struct {
	RunID       uuid.UUID                `json:"run_id"`
	ContextID   uuid.UUID                `json:"context_id"`
	Specialist  int64                    `json:"specialist_telegram_id"`
	Mode        simulator.SessionMode    `json:"mode"`
	CaseID      string                   `json:"case_id"`
	ClientBrief string                   `json:"client_brief"`
	Crisis      simulator.CrisisFlag     `json:"crisis"`
	Goal        simulator.SessionGoal    `json:"goal"`
	Messages    []oracleMessage          `json:"messages"`
	Iterations  []render.IterationRow    `json:"iterations"`
}

type oracleMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// SimulatorHandler drives the role-play session: setup via callback
// buttons, a rolling Claude conversation, and a final stability report on
// /end (spec §4.9).
type SimulatorHandler struct {
	fsm       *repositories.FSMRepository
	profiles  *repositories.SpecialistProfileRepository
	artifacts *services.ArtifactService
	links     *services.LinkTokenService
	oracle    oracle.Client
	tg        telegram.ServiceInterface
}

func NewSimulatorHandler(
	fsm *repositories.FSMRepository,
	profiles *repositories.SpecialistProfileRepository,
	artifacts *services.ArtifactService,
	links *services.LinkTokenService,
	oracleClient oracle.Client,
	tg telegram.ServiceInterface,
) *SimulatorHandler {
	return &SimulatorHandler{fsm: fsm, profiles: profiles, artifacts: artifacts, links: links, oracle: oracleClient, tg: tg}
}

func (h *SimulatorHandler) Handle(ctx context.Context, u Update) error {
	state, err := h.fsm.Load(ctx, string(config.BotSimulator), u.ChatID)
	if err != nil {
		return err
	}

	if u.Command == "start" {
		return h.handleStart(ctx, u)
	}
	if state == nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Пройдите по ссылке от специалиста, чтобы начать сессию.")
	}

	var payload simulatorPayload
	if len(state.Payload) > 0 {
		_ = json.Unmarshal(state.Payload, &payload)
	}

	if u.Command == "end" && state.State == simStateActive {
		return h.savePayload(ctx, u.ChatID, simStateConfirmEnd, payload)
	}

	switch state.State {
	case simStateAwaitingMode:
		return h.handleModeChoice(ctx, u, payload)
	case simStateAwaitingCase:
		return h.handleCaseChoice(ctx, u, payload)
	case simStateAwaitingCrisis:
		return h.handleCrisisChoice(ctx, u, payload)
	case simStateAwaitingGoal:
		return h.handleGoalChoice(ctx, u, payload)
	case simStateActive:
		return h.handleTurn(ctx, u, payload)
	case simStateConfirmEnd:
		return h.handleConfirmEnd(ctx, u, payload)
	default:
		return h.tg.SendMessage(ctx, u.ChatID, "Сессия уже завершена.")
	}
}

func (h *SimulatorHandler) handleStart(ctx context.Context, u Update) error {
	token := strings.TrimSpace(u.CommandArgs)
	verified, err := h.links.Verify(ctx, dto.VerifyLinkDTO{
		RawToken:  token,
		ServiceID: string(config.BotSimulator),
		SubjectID: u.TelegramUserID,
	})
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Ссылка недействительна: "+err.Error())
	}

	payload := simulatorPayload{RunID: verified.RunID, ContextID: verified.ContextID, Specialist: u.TelegramUserID}
	if err := h.savePayload(ctx, u.ChatID, simStateAwaitingMode, payload); err != nil {
		return err
	}

	return sendWithButtons(ctx, h.tg, u.ChatID, "Выберите режим сессии.", [][]tgButton{
		{{text: "🎓 Обучение — готовые кейсы", data: "mode:TRAINING"}},
		{{text: "🏋️ Тренировка — свои данные", data: "mode:PRACTICE"}},
	})
}

func (h *SimulatorHandler) handleModeChoice(ctx context.Context, u Update, payload simulatorPayload) error {
	mode := simulator.SessionMode(strings.TrimPrefix(u.CallbackData, "mode:"))
	payload.Mode = mode

	if mode == simulator.ModeTraining {
		if err := h.savePayload(ctx, u.ChatID, simStateAwaitingCase, payload); err != nil {
			return err
		}
		var rows [][]tgButton
		for _, c := range simulator.BuiltinCases {
			rows = append(rows, []tgButton{{text: c.CaseName, data: "case:" + c.CaseID}})
		}
		return sendWithButtons(ctx, h.tg, u.ChatID, "Выберите кейс.", rows)
	}

	if err := h.savePayload(ctx, u.ChatID, simStateAwaitingCase, payload); err != nil {
		return err
	}
	return h.tg.SendMessage(ctx, u.ChatID, "Опишите свой случай свободным текстом (профиль клиента).")
}

func (h *SimulatorHandler) handleCaseChoice(ctx context.Context, u Update, payload simulatorPayload) error {
	if payload.Mode == simulator.ModePractice {
		payload.ClientBrief = strings.TrimSpace(u.Text)
		if err := h.savePayload(ctx, u.ChatID, simStateAwaitingCrisis, payload); err != nil {
			return err
		}
		return h.askCrisis(ctx, u.ChatID)
	}

	caseID := strings.TrimPrefix(u.CallbackData, "case:")
	builtin := simulator.FindCase(caseID)
	if builtin == nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Кейс не найден.")
	}
	payload.CaseID = builtin.CaseID
	payload.ClientBrief = builtin.ClientBrief
	payload.Crisis = builtin.Crisis

	return h.askGoal(ctx, u.ChatID, payload)
}

func (h *SimulatorHandler) askCrisis(ctx context.Context, chatID int64) error {
	return sendWithButtons(ctx, h.tg, chatID, "Укажите кризисный флаг.", [][]tgButton{
		{{text: "⚪ Нет кризиса", data: "crisis:NONE"}},
		{{text: "🟡 Умеренный", data: "crisis:MODERATE"}},
		{{text: "🔴 Высокий", data: "crisis:HIGH"}},
	})
}

func (h *SimulatorHandler) handleCrisisChoice(ctx context.Context, u Update, payload simulatorPayload) error {
	payload.Crisis = simulator.CrisisFlag(strings.TrimPrefix(u.CallbackData, "crisis:"))
	return h.askGoal(ctx, u.ChatID, payload)
}

func (h *SimulatorHandler) askGoal(ctx context.Context, chatID int64, payload simulatorPayload) error {
	if err := h.savePayload(ctx, chatID, simStateAwaitingGoal, payload); err != nil {
		return err
	}
	var rows [][]tgButton
	for goal, label := range simulator.GoalLabels {
		rows = append(rows, []tgButton{{text: label, data: "goal:" + string(goal)}})
	}
	return sendWithButtons(ctx, h.tg, chatID, "Выберите цель сессии.", rows)
}

func (h *SimulatorHandler) handleGoalChoice(ctx context.Context, u Update, payload simulatorPayload) error {
	payload.Goal = simulator.SessionGoal(strings.TrimPrefix(u.CallbackData, "goal:"))

	systemPrompt := simulator.BuildSystemPrompt(payload.ClientBrief, payload.Crisis, payload.Goal, payload.Mode)
	firstReply, err := h.oracle.Ask(ctx, systemPrompt, "Сессия начинается. Клиент входит в кабинет.", "claude-sonnet-4-5", 800)
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Не удалось начать сессию. Попробуйте позже.")
	}
	payload.Messages = append(payload.Messages,
		oracleMessage{Role: "system", Text: systemPrompt},
		oracleMessage{Role: "assistant", Text: firstReply},
	)
	payload.Iterations = append(payload.Iterations, iterationFromReply(0, firstReply))

	if err := h.savePayload(ctx, u.ChatID, simStateActive, payload); err != nil {
		return err
	}
	parsed := simulator.ParseResponse(firstReply)
	return h.tg.SendMessage(ctx, u.ChatID, simulator.FormatForTelegram(parsed))
}

func (h *SimulatorHandler) handleTurn(ctx context.Context, u Update, payload simulatorPayload) error {
	payload.Messages = append(payload.Messages, oracleMessage{Role: "user", Text: u.Text})

	reply, err := h.oracle.Ask(ctx, payload.Messages[0].Text, renderConversation(payload.Messages), "claude-sonnet-4-5", 800)
	if err != nil {
		return h.tg.SendMessage(ctx, u.ChatID, "Оракул недоступен. Попробуйте ещё раз.")
	}
	payload.Messages = append(payload.Messages, oracleMessage{Role: "assistant", Text: reply})
	payload.Iterations = append(payload.Iterations, iterationFromReply(len(payload.Iterations), reply))

	if err := h.savePayload(ctx, u.ChatID, simStateActive, payload); err != nil {
		return err
	}

	parsed := simulator.ParseResponse(reply)
	return h.tg.SendMessage(ctx, u.ChatID, simulator.FormatForTelegram(parsed))
}

func (h *SimulatorHandler) handleConfirmEnd(ctx context.Context, u Update, payload simulatorPayload) error {
	if u.CallbackData == "end:cancel" {
		return h.savePayload(ctx, u.ChatID, simStateActive, payload)
	}
	return h.finishSession(ctx, u, payload)
}

func (h *SimulatorHandler) finishSession(ctx context.Context, u Update, payload simulatorPayload) error {
	reportText, err := h.oracle.Ask(ctx, finalReportPrompt, renderConversation(payload.Messages), "claude-sonnet-4-5", 2000)
	if err != nil {
		reportText = ""
	}

	rMatch, lConsistency, alliance, uncertainty, reactivity, ok := simulator.ParseStabilityComponents(reportText)
	components := domainmath.StabilityComponents{
		RMatch: rMatch, LConsistency: lConsistency, Alliance: alliance,
		UncertaintyModulation: uncertainty, TherapistReactivity: reactivity,
	}
	var tsi float64
	var band domainmath.StabilityBand
	if ok {
		tsi = domainmath.TSI(components)
		band = domainmath.Band(tsi)
	}

	cci := caseComplexity(payload)

	report := render.StabilityReport{
		CaseName:      caseNameFor(payload),
		CaseID:        payload.CaseID,
		SessionGoal:   simulator.GoalLabels[payload.Goal],
		Mode:          simulator.ModeLabels[payload.Mode],
		CrisisFlag:    string(payload.Crisis),
		GeneratedAt:   timeNowFrom(payload),
		Iterations:    payload.Iterations,
		TSI:           tsi,
		TSIBand:       band,
		TSIComponents: components,
		CCI:           cci,
	}

	xlsx, buildErr := render.BuildStabilityReport(report)
	if buildErr == nil {
		_ = h.tg.SendDocument(ctx, u.ChatID, fmt.Sprintf("report_%s.xlsx", payload.RunID.String()), xlsx, "Аналитический отчёт сессии")
	}

	if err := h.tg.SendMessage(ctx, u.ChatID, stabilitySummary(tsi, band, ok)); err != nil {
		return err
	}

	if ok {
		if err := h.updateProfile(ctx, payload.Specialist, tsi, payload.Iterations); err != nil {
			return err
		}
	}

	artifact, _ := json.Marshal(map[string]interface{}{
		"report_text": reportText,
		"tsi":         tsi,
		"cci":         cci,
		"iterations":  len(payload.Iterations),
	})
	summary := fmt.Sprintf("TSI=%.2f CCI=%.2f iterations=%d", tsi, cci, len(payload.Iterations))
	if err := h.artifacts.Save(ctx, payload.RunID, payload.ContextID, string(config.BotSimulator), payload.Specialist, artifact, summary); err != nil {
		return err
	}

	return h.savePayload(ctx, u.ChatID, simStateCompleted, payload)
}

func (h *SimulatorHandler) updateProfile(ctx context.Context, specialistTelegram int64, tsi float64, iterations []render.IterationRow) error {
	profile, err := h.profiles.Get(ctx, specialistTelegram)
	if err != nil {
		return err
	}
	if profile == nil {
		profile = &entities.SpecialistProfile{SpecialistTelegram: specialistTelegram}
	}

	green, yellow, red := signalCounts(iterations)
	total := float64(green + yellow + red)

	n := float64(profile.SessionCount)
	profile.AvgTSI = blend(profile.AvgTSI, n, tsi)
	if total > 0 {
		profile.AvgSignalGreen = blend(profile.AvgSignalGreen, n, float64(green)/total)
		profile.AvgSignalYellow = blend(profile.AvgSignalYellow, n, float64(yellow)/total)
		profile.AvgSignalRed = blend(profile.AvgSignalRed, n, float64(red)/total)
	}
	var sessionDeltaTrust float64
	for _, it := range iterations {
		sessionDeltaTrust += float64(it.DeltaTrust)
	}
	profile.RollingDeltaTrust = blend(profile.RollingDeltaTrust, n, sessionDeltaTrust)
	profile.SessionCount++

	return h.profiles.Upsert(ctx, profile)
}

func (h *SimulatorHandler) savePayload(ctx context.Context, chatID int64, state string, payload simulatorPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.fsm.Upsert(ctx, &entities.FSMState{
		BotID:   string(config.BotSimulator),
		ChatID:  chatID,
		Role:    entities.RoleSpecialist,
		State:   state,
		Payload: raw,
	})
}

func blend(avg, n, value float64) float64 {
	if n <= 0 {
		return value
	}
	return (avg*n + value) / (n + 1)
}

func signalCounts(iterations []render.IterationRow) (green, yellow, red int) {
	for _, it := range iterations {
		switch it.Signal {
		case simulator.SignalGreen:
			green++
		case simulator.SignalYellow:
			yellow++
		case simulator.SignalRed:
			red++
		}
	}
	return
}

func iterationFromReply(replicaID int, reply string) render.IterationRow {
	parsed := simulator.ParseResponse(reply)
	return render.IterationRow{
		ReplicaID:     replicaID,
		Signal:        parsed.Signal,
		ActiveLayer:   parsed.ActiveLayer,
		MatchScore:    parsed.MatchScore,
		CascadeProb:   parsed.CascadeProb,
		DeltaTrust:    parsed.Delta.Trust,
		CrisisWarning: parsed.CrisisWarning,
	}
}

func renderConversation(messages []oracleMessage) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Role == "system" {
			continue
		}
		b.WriteString(m.Role + ": " + m.Text + "\n")
	}
	return b.String()
}

func caseNameFor(payload simulatorPayload) string {
	if c := simulator.FindCase(payload.CaseID); c != nil {
		return c.CaseName
	}
	return "Пользовательский кейс"
}

func caseComplexity(payload simulatorPayload) float64 {
	if c := simulator.FindCase(payload.CaseID); c != nil {
		return domainmath.CCI(c.Dynamics)
	}
	return 0
}

func timeNowFrom(payload simulatorPayload) time.Time {
	return time.Now().UTC()
}

func stabilitySummary(tsi float64, band domainmath.StabilityBand, ok bool) string {
	if !ok {
		return "Сессия завершена. Недостаточно данных для расчёта индекса устойчивости."
	}
	return fmt.Sprintf("Сессия завершена. TSI=%.2f (%s)", tsi, band)
}

const finalReportPrompt = "Сформируй итоговый аналитический отчёт по сессии специалиста. В конце укажи построчно: " +
	"R_match: <0..1>, L_consistency: <0..1>, Alliance_score: <0..1>, Uncertainty_modulation: <0..1>, Therapist_reactivity: <0..1>."
