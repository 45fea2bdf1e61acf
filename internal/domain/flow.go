package domain

// Default legal-intake questionnaire, served when the flow store is empty or
// unavailable. Step ids 1..4 are name, area of practice, situation and
// consultation preference.
const (
	StepName       = 1
	StepArea       = 2
	StepSituation  = 3
	StepScheduling = 4

	DefaultCompletionMessage = "Obrigado! Suas informações foram registradas."
)

// DefaultFlow returns a fresh copy of the built-in questionnaire.
func DefaultFlow() Flow {
	return Flow{
		Steps: []FlowStep{
			{ID: StepName, Question: "Qual é o seu nome completo?"},
			{ID: StepArea, Question: "Em qual área do direito você precisa de ajuda?"},
			{ID: StepSituation, Question: "Descreva brevemente sua situação."},
			{ID: StepScheduling, Question: "Gostaria de agendar uma consulta?"},
		},
		CompletionMessage: DefaultCompletionMessage,
	}
}
