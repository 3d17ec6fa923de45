package screening

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"psycheos-gateway/internal/entities"
	"psycheos-gateway/internal/jsonutil"
	"psycheos-gateway/internal/oracle"
	"psycheos-gateway/internal/repositories"
	"psycheos-gateway/internal/vectorengine"
)

const (
	haikuModel         = "claude-haiku-4-5"
	sonnetModel        = "claude-sonnet-4-5"
	confidenceThreshold = 0.85
	maxPhase2Questions  = 3
	maxPhase3Questions  = 5
)

// Action is the orchestrator's instruction to the calling handler: show the
// next screen, or the assessment is complete.
type Action struct {
	Kind        string // "show_screen" | "complete"
	Screen      *Screen
	Phase2Node  string
	Phase       entities.ScreeningPhase
	ReportJSON  json.RawMessage
	ReportText  string
}

// Orchestrator drives the 3-phase screening flow for one assessment at a
// time; it is stateless across calls — all durable state lives in the
// screening_assessments row, loaded and saved around each step.
type Orchestrator struct {
	repo   *repositories.ScreeningRepository
	oracle oracle.Client
}

func NewOrchestrator(repo *repositories.ScreeningRepository, oracleClient oracle.Client) *Orchestrator {
	return &Orchestrator{repo: repo, oracle: oracleClient}
}

func loadEngineState(a *entities.ScreeningAssessment) (vectorengine.EngineState, error) {
	var responses []vectorengine.Response
	if len(a.ResponseHistory) > 0 {
		if err := json.Unmarshal(a.ResponseHistory, &responses); err != nil {
			return vectorengine.EngineState{}, fmt.Errorf("screening: decode response history: %w", err)
		}
	}
	return vectorengine.FromHistory(responses), nil
}

func saveEngineState(a *entities.ScreeningAssessment, state vectorengine.EngineState) error {
	marshal := func(v interface{}) (json.RawMessage, error) {
		b, err := json.Marshal(v)
		return json.RawMessage(b), err
	}

	var err error
	if a.AxisVector, err = marshal(state.Axis); err != nil {
		return err
	}
	if a.LayerVector, err = marshal(state.Layer); err != nil {
		return err
	}
	if a.TensionMatrix, err = marshal(state.Tension); err != nil {
		return err
	}
	if a.AmbiguityZones, err = marshal(state.AmbiguityZones); err != nil {
		return err
	}
	if a.DominantCells, err = marshal(state.DominantCells); err != nil {
		return err
	}
	if a.ResponseHistory, err = marshal(state.ResponseHistory); err != nil {
		return err
	}
	a.Rigidity = state.Rigidity.Total
	a.Confidence = state.Confidence
	return nil
}

// StartAssessment marks the assessment in_progress and returns the first
// Phase 1 screen.
func (o *Orchestrator) StartAssessment(ctx context.Context, assessment *entities.ScreeningAssessment) (Action, error) {
	assessment.Phase = entities.PhaseOne
	assessment.Status = entities.AssessmentStatusInProgress
	if err := o.repo.Update(ctx, assessment); err != nil {
		return Action{}, err
	}
	screen, err := GetPhase1Screen(0)
	if err != nil {
		return Action{}, err
	}
	return Action{Kind: "show_screen", Screen: &screen, Phase: entities.PhaseOne}, nil
}

// ProcessPhase1Response processes one Phase 1 multi-select answer and
// advances to the next screen, Phase 2, or completion.
func (o *Orchestrator) ProcessPhase1Response(ctx context.Context, assessment *entities.ScreeningAssessment, screenIndex int, selected []int) (Action, error) {
	state, err := loadEngineState(assessment)
	if err != nil {
		return Action{}, err
	}

	screen, err := GetPhase1Screen(screenIndex)
	if err != nil {
		return Action{}, err
	}
	for _, idx := range selected {
		if idx < 0 || idx >= len(screen.Options) {
			continue
		}
		state = vectorengine.ProcessResponse(state, screen.Options[idx].toResponse())
	}
	if err := saveEngineState(assessment, state); err != nil {
		return Action{}, err
	}
	if err := o.repo.Update(ctx, assessment); err != nil {
		return Action{}, err
	}

	if screenIndex < 5 {
		next, err := GetPhase1Screen(screenIndex + 1)
		if err != nil {
			return Action{}, err
		}
		return Action{Kind: "show_screen", Screen: &next, Phase: entities.PhaseOne}, nil
	}

	assessment.Phase1Completed = true

	if state.Confidence >= confidenceThreshold {
		return o.generateReport(ctx, assessment)
	}

	assessment.Phase = entities.PhaseTwo
	if err := o.repo.Update(ctx, assessment); err != nil {
		return Action{}, err
	}
	return o.selectNextPhase2Question(ctx, state)
}

// ProcessPhase2Response processes one Phase 2 adaptive answer.
func (o *Orchestrator) ProcessPhase2Response(ctx context.Context, assessment *entities.ScreeningAssessment, currentNode string, selected []int) (Action, error) {
	state, err := loadEngineState(assessment)
	if err != nil {
		return Action{}, err
	}
	prevAxis := map[string]float64{}
	for k, v := range state.Axis {
		prevAxis[k] = v
	}

	template, ok := GetPhase2Template(currentNode)
	if !ok {
		return Action{}, fmt.Errorf("screening: unknown phase 2 node %q", currentNode)
	}
	for _, idx := range selected {
		if idx < 0 || idx >= len(template.Options) {
			continue
		}
		state = vectorengine.ProcessResponse(state, template.Options[idx].toResponse())
	}

	assessment.Phase2Questions++
	if err := saveEngineState(assessment, state); err != nil {
		return Action{}, err
	}
	if err := o.repo.Update(ctx, assessment); err != nil {
		return Action{}, err
	}

	stop := o.checkStopPhase2(ctx, state, prevAxis, assessment.Phase2Questions)

	if stop || (assessment.Phase2Questions >= maxPhase2Questions && state.Confidence >= confidenceThreshold) {
		return o.generateReport(ctx, assessment)
	}

	if assessment.Phase2Questions < maxPhase2Questions {
		return o.selectNextPhase2Question(ctx, state)
	}

	if state.Confidence < confidenceThreshold {
		assessment.Phase = entities.PhaseThree
		if err := o.repo.Update(ctx, assessment); err != nil {
			return Action{}, err
		}
		return o.selectNextPhase3Question(ctx, state)
	}

	return o.generateReport(ctx, assessment)
}

// ProcessPhase3Response processes one Phase 3 constructed answer.
func (o *Orchestrator) ProcessPhase3Response(ctx context.Context, assessment *entities.ScreeningAssessment, currentNode string, selected []int) (Action, error) {
	state, err := loadEngineState(assessment)
	if err != nil {
		return Action{}, err
	}
	template, ok := GetPhase2Template(currentNode)
	if !ok {
		return Action{}, fmt.Errorf("screening: unknown phase 3 node %q", currentNode)
	}
	for _, idx := range selected {
		if idx < 0 || idx >= len(template.Options) {
			continue
		}
		state = vectorengine.ProcessResponse(state, template.Options[idx].toResponse())
	}

	assessment.Phase3Questions++
	if err := saveEngineState(assessment, state); err != nil {
		return Action{}, err
	}
	if err := o.repo.Update(ctx, assessment); err != nil {
		return Action{}, err
	}

	if assessment.Phase3Questions >= maxPhase3Questions || state.Confidence >= confidenceThreshold {
		return o.generateReport(ctx, assessment)
	}

	return o.selectNextPhase3Question(ctx, state)
}

type routerResponse struct {
	SelectedNode string `json:"selected_node"`
}

func (o *Orchestrator) selectNextPhase2Question(ctx context.Context, state vectorengine.EngineState) (Action, error) {
	selectedNode := fallbackNode(state)

	prompt := fmt.Sprintf(
		"AxisVector: %v\nLayerVector: %v\nRigidityIndex: %+v\nAmbiguityZones: %v\nConfidence: %.4f",
		state.Axis, state.Layer, state.Rigidity, state.AmbiguityZones, state.Confidence,
	)
	if raw, err := o.oracle.Ask(ctx, "You are the routing module of PsycheOS Screening. Respond only with valid JSON.", prompt, haikuModel, 500); err == nil {
		var resp routerResponse
		if jsonutil.ExtractAndRepair(raw, &resp) == nil && resp.SelectedNode != "" {
			if _, ok := GetPhase2Template(resp.SelectedNode); ok {
				selectedNode = resp.SelectedNode
			}
		}
	}

	template, ok := GetPhase2Template(selectedNode)
	if !ok {
		nodes := AllPhase2Nodes()
		template, _ = GetPhase2Template(nodes[0])
	}
	screen := Screen{Question: template.ReferenceQuestion, Options: template.Options}
	return Action{Kind: "show_screen", Screen: &screen, Phase2Node: template.Node, Phase: entities.PhaseTwo}, nil
}

type constructorResponse struct {
	Question       string   `json:"question"`
	DiagnosticGoal string   `json:"diagnostic_goal"`
	Options        []string `json:"options"`
}

func (o *Orchestrator) selectNextPhase3Question(ctx context.Context, state vectorengine.EngineState) (Action, error) {
	selectedNode := fallbackNode(state)
	template, ok := GetPhase2Template(selectedNode)
	if !ok {
		nodes := AllPhase2Nodes()
		template, _ = GetPhase2Template(nodes[0])
		selectedNode = template.Node
	}

	prompt := fmt.Sprintf(
		"DiagnosticNode: %s\nDiagnosticSplit: %s\nReferenceQuestion: %s\nAxisVector: %v\nLayerVector: %v",
		selectedNode, template.DiagnosticSplit, template.ReferenceQuestion, state.Axis, state.Layer,
	)
	raw, err := o.oracle.Ask(ctx, "You are the adaptive question constructor of PsycheOS Screening. Respond only with valid JSON. Question and options must be in Russian.", prompt, sonnetModel, 1500)
	if err == nil {
		var resp constructorResponse
		if jsonutil.ExtractAndRepair(raw, &resp) == nil && resp.Question != "" && len(resp.Options) > 0 {
			options := make([]Option, len(resp.Options))
			for i, text := range resp.Options {
				options[i] = Option{Text: text, AxisWeights: template.Options[i%len(template.Options)].AxisWeights, LayerWeights: template.Options[i%len(template.Options)].LayerWeights}
			}
			screen := Screen{Question: resp.Question, Options: options}
			return Action{Kind: "show_screen", Screen: &screen, Phase2Node: selectedNode, Phase: entities.PhaseThree}, nil
		}
	}

	screen := Screen{Question: template.ReferenceQuestion, Options: template.Options}
	return Action{Kind: "show_screen", Screen: &screen, Phase2Node: selectedNode, Phase: entities.PhaseThree}, nil
}

type stopResponse struct {
	StopPhase2 bool `json:"stop_phase2"`
}

func (o *Orchestrator) checkStopPhase2(ctx context.Context, state vectorengine.EngineState, prevAxis map[string]float64, questionsAsked int) bool {
	delta := map[string]float64{}
	var sum float64
	for _, a := range vectorengine.Axes {
		d := math.Abs(state.Axis[a] - prevAxis[a])
		delta[a] = d
		sum += d
	}
	conflictIndex := sum / float64(len(vectorengine.Axes))

	prompt := fmt.Sprintf(
		"PreviousAxisVector: %v\nUpdatedAxisVector: %v\nConflictIndex: %.4f\nConfidence: %.4f\nQuestionsAsked: %d",
		prevAxis, state.Axis, conflictIndex, state.Confidence, questionsAsked,
	)
	if raw, err := o.oracle.Ask(ctx, "You are the phase-control module of PsycheOS Screening. Respond only with valid JSON.", prompt, haikuModel, 200); err == nil {
		var resp stopResponse
		if jsonutil.ExtractAndRepair(raw, &resp) == nil {
			return resp.StopPhase2
		}
	}

	allSmall := true
	for _, d := range delta {
		if d >= 0.1 {
			allSmall = false
			break
		}
	}
	return allSmall || state.Confidence >= confidenceThreshold || questionsAsked >= maxPhase2Questions
}

func fallbackNode(state vectorengine.EngineState) string {
	if len(state.AmbiguityZones) > 0 {
		if _, ok := GetPhase2Template(state.AmbiguityZones[0]); ok {
			return state.AmbiguityZones[0]
		}
	}
	return AllPhase2Nodes()[0]
}

func (o *Orchestrator) generateReport(ctx context.Context, assessment *entities.ScreeningAssessment) (Action, error) {
	state, err := loadEngineState(assessment)
	if err != nil {
		return Action{}, err
	}

	prompt := fmt.Sprintf(
		"AxisVector: %v\nLayerVector: %v\nTensionMatrix: %v\nRigidity: %+v\nConfidence: %.4f\nDominantCells: %v",
		state.Axis, state.Layer, state.Tension, state.Rigidity, state.Confidence, state.DominantCells,
	)
	reportText, err := o.oracle.Ask(ctx, "You are the reporting module of PsycheOS Screening. Produce a structural report in Russian.", prompt, sonnetModel, 2000)
	if err != nil {
		reportText = "Отчёт недоступен: ошибка генерации. Данные сохранены для повторной попытки."
	}

	reportJSON, _ := json.Marshal(map[string]interface{}{
		"axis_vector":     state.Axis,
		"layer_vector":    state.Layer,
		"tension_matrix":  state.Tension,
		"rigidity":        state.Rigidity,
		"confidence":      state.Confidence,
		"dominant_cells":  state.DominantCells,
		"ambiguity_zones": state.AmbiguityZones,
	})

	assessment.ReportJSON = reportJSON
	assessment.ReportText = reportText
	assessment.Status = entities.AssessmentStatusCompleted
	assessment.Phase = entities.PhaseReport
	if err := o.repo.Update(ctx, assessment); err != nil {
		return Action{}, err
	}

	return Action{Kind: "complete", ReportJSON: reportJSON, ReportText: reportText, Phase: entities.PhaseReport}, nil
}
