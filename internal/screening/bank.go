// Package screening drives the 3-phase screening flow: 6 fixed Phase 1
// multi-select screens (rule-based), up to 3 Claude-routed Phase 2
// questions, up to 5 Claude-constructed Phase 3 questions, and a final
// Claude-generated structural report.
package screening

import (
	"fmt"

	"psycheos-gateway/internal/vectorengine"
)

// Option is one answer choice on a screen; selecting it contributes one
// Response to the vector engine.
type Option struct {
	Text         string
	AxisWeights  map[string]float64
	LayerWeights map[string]float64
}

func (o Option) toResponse() vectorengine.Response {
	return vectorengine.Response{AxisWeights: o.AxisWeights, LayerWeights: o.LayerWeights}
}

// Screen is a question with its answer options.
type Screen struct {
	Question string
	Options  []Option
}

// Phase2Template is a Phase 2 diagnostic question keyed by the ambiguity
// node it targets (e.g. "A1_L0").
type Phase2Template struct {
	Node              string
	ReferenceQuestion string
	Options           []Option
	DiagnosticSplit   string
}

// phase1Screens are the six fixed Phase 1 screens, each contributing a
// broad read across all axes and layers before adaptive phases narrow in.
var phase1Screens = []Screen{
	{
		Question: "Как вы обычно реагируете, когда что-то идёт не по плану?",
		Options: []Option{
			{Text: "Стараюсь сохранять контроль и логически разобраться", AxisWeights: map[string]float64{"A1": 0.6, "A2": -0.2}, LayerWeights: map[string]float64{"L2": 0.7}},
			{Text: "Испытываю резкий всплеск эмоций", AxisWeights: map[string]float64{"A1": -0.7, "A2": 0.5}, LayerWeights: map[string]float64{"L0": 0.8}},
			{Text: "Отстраняюсь и жду, пока пройдёт", AxisWeights: map[string]float64{"A3": -0.5}, LayerWeights: map[string]float64{"L1": 0.6}},
		},
	},
	{
		Question: "Насколько важно для вас, чтобы другие одобряли ваши решения?",
		Options: []Option{
			{Text: "Очень важно, сверяюсь постоянно", AxisWeights: map[string]float64{"A4": 0.7}, LayerWeights: map[string]float64{"L3": 0.7}},
			{Text: "Важно, но не определяюще", AxisWeights: map[string]float64{"A4": 0.3}, LayerWeights: map[string]float64{"L3": 0.4}},
			{Text: "Почти не важно", AxisWeights: map[string]float64{"A4": -0.4}, LayerWeights: map[string]float64{"L4": 0.5}},
		},
	},
	{
		Question: "Как вы описали бы свои отношения с собственными целями?",
		Options: []Option{
			{Text: "Чёткие, я их регулярно пересматриваю", AxisWeights: map[string]float64{"A1": 0.4, "A3": 0.3}, LayerWeights: map[string]float64{"L4": 0.7}},
			{Text: "Размытые, меняются в зависимости от обстоятельств", AxisWeights: map[string]float64{"A1": -0.3}, LayerWeights: map[string]float64{"L2": 0.5}},
			{Text: "Почти не задумываюсь о целях", AxisWeights: map[string]float64{"A1": -0.6}, LayerWeights: map[string]float64{"L1": 0.5}},
		},
	},
	{
		Question: "Что происходит, когда вы сталкиваетесь с конфликтом?",
		Options: []Option{
			{Text: "Ищу компромисс, сохраняя свою позицию", AxisWeights: map[string]float64{"A2": -0.3, "A3": 0.4}, LayerWeights: map[string]float64{"L2": 0.6}},
			{Text: "Избегаю конфликта любой ценой", AxisWeights: map[string]float64{"A2": 0.6}, LayerWeights: map[string]float64{"L3": 0.6}},
			{Text: "Вступаю в открытую конфронтацию", AxisWeights: map[string]float64{"A2": -0.7}, LayerWeights: map[string]float64{"L0": 0.6}},
		},
	},
	{
		Question: "Как вы воспринимаете изменения в привычном укладе жизни?",
		Options: []Option{
			{Text: "С интересом, как возможность", AxisWeights: map[string]float64{"A3": 0.6}, LayerWeights: map[string]float64{"L4": 0.6}},
			{Text: "С тревогой, нужно время на адаптацию", AxisWeights: map[string]float64{"A3": -0.4}, LayerWeights: map[string]float64{"L1": 0.5}},
			{Text: "С сопротивлением, предпочитаю стабильность", AxisWeights: map[string]float64{"A3": -0.7}, LayerWeights: map[string]float64{"L2": 0.5}},
		},
	},
	{
		Question: "Насколько часто вы оглядываетесь на прошлые решения с сожалением?",
		Options: []Option{
			{Text: "Редко, принимаю их как часть пути", AxisWeights: map[string]float64{"A4": -0.3}, LayerWeights: map[string]float64{"L4": 0.5}},
			{Text: "Иногда, особенно в стрессовые периоды", AxisWeights: map[string]float64{"A4": 0.3}, LayerWeights: map[string]float64{"L2": 0.4}},
			{Text: "Часто, это занимает много внимания", AxisWeights: map[string]float64{"A4": 0.7}, LayerWeights: map[string]float64{"L0": 0.5}},
		},
	},
}

// phase2Templates covers all 20 tension-matrix node keys ("A{j}_L{k}" for
// j in 1..4, k in 0..4), each with a generic but axis/layer-targeted
// clarifying question.
var phase2Templates = buildPhase2Templates()

func buildPhase2Templates() []Phase2Template {
	templates := make([]Phase2Template, 0, 20)
	for j := 1; j <= 4; j++ {
		for k := 0; k <= 4; k++ {
			axis := fmt.Sprintf("A%d", j)
			layer := fmt.Sprintf("L%d", k)
			node := axis + "_" + layer
			templates = append(templates, Phase2Template{
				Node:              node,
				ReferenceQuestion: fmt.Sprintf("Уточняющий вопрос для узла %s: насколько выражен этот паттерн в повседневной жизни?", node),
				DiagnosticSplit:   fmt.Sprintf("%s/%s", axis, layer),
				Options: []Option{
					{
						Text:         "Выражен сильно, проявляется почти всегда",
						AxisWeights:  map[string]float64{axis: 0.6},
						LayerWeights: map[string]float64{layer: 0.6},
					},
					{
						Text:         "Выражен умеренно, зависит от контекста",
						AxisWeights:  map[string]float64{axis: 0.2},
						LayerWeights: map[string]float64{layer: 0.2},
					},
					{
						Text:         "Почти не выражен",
						AxisWeights:  map[string]float64{axis: -0.3},
						LayerWeights: map[string]float64{layer: -0.1},
					},
				},
			})
		}
	}
	return templates
}

var phase2Index = func() map[string]Phase2Template {
	idx := make(map[string]Phase2Template, len(phase2Templates))
	for _, t := range phase2Templates {
		idx[t.Node] = t
	}
	return idx
}()

// GetPhase1Screen returns the fixed Phase 1 screen at the given zero-based
// index (0-5).
func GetPhase1Screen(index int) (Screen, error) {
	if index < 0 || index >= len(phase1Screens) {
		return Screen{}, fmt.Errorf("screening: phase 1 screen index %d out of range (valid: 0-%d)", index, len(phase1Screens)-1)
	}
	return phase1Screens[index], nil
}

// GetPhase2Template returns the Phase 2 diagnostic template for a node key.
func GetPhase2Template(node string) (Phase2Template, bool) {
	t, ok := phase2Index[node]
	return t, ok
}

// AllPhase2Nodes returns every Phase 2 node key in definition order.
func AllPhase2Nodes() []string {
	nodes := make([]string, len(phase2Templates))
	for i, t := range phase2Templates {
		nodes[i] = t.Node
	}
	return nodes
}
