package service

import "strings"

// The fallback bank is served when the question provider is unavailable.
// Banks are keyed by language and then by CEFR band.
var fallbackBank = map[string]map[string][]PracticeQuestion{
	"es": {
		"A": {
			{Prompt: "¿Cómo se dice \"thank you\" en español?", Options: []string{"Hola", "Gracias", "Adiós", "Por favor"}, Answer: "Gracias"},
			{Prompt: "Yo ___ estudiante.", Options: []string{"soy", "eres", "es", "son"}, Answer: "soy", Explanation: "Ser is conjugated as soy in the first person singular."},
			{Prompt: "¿Qué número es \"siete\"?", Options: []string{"5", "6", "7", "8"}, Answer: "7"},
			{Prompt: "El plural de \"libro\" es...", Options: []string{"libros", "libroes", "libras", "libro"}, Answer: "libros"},
			{Prompt: "¿Qué día va después del lunes?", Options: []string{"domingo", "martes", "jueves", "sábado"}, Answer: "martes"},
		},
		"B": {
			{Prompt: "Ayer nosotros ___ al cine.", Options: []string{"vamos", "fuimos", "iremos", "íbamos a"}, Answer: "fuimos", Explanation: "A single completed past action takes the preterite."},
			{Prompt: "Espero que tú ___ bien.", Options: []string{"estás", "estés", "estarás", "estuviste"}, Answer: "estés", Explanation: "Esperar que triggers the subjunctive."},
			{Prompt: "\"Echar de menos\" significa...", Options: []string{"to throw away", "to miss someone", "to lose weight", "to be late"}, Answer: "to miss someone"},
			{Prompt: "Si tuviera tiempo, ___ más.", Options: []string{"leo", "leería", "leí", "leeré"}, Answer: "leería", Explanation: "Imperfect subjunctive in the si clause pairs with the conditional."},
			{Prompt: "Elige el sinónimo de \"rápido\".", Options: []string{"lento", "veloz", "tranquilo", "pesado"}, Answer: "veloz"},
		},
		"C": {
			{Prompt: "De haberlo sabido, no ___ venido.", Options: []string{"habría", "había", "haya", "hubiera sido"}, Answer: "habría"},
			{Prompt: "\"Dar gato por liebre\" significa...", Options: []string{"to cheat someone", "to cook rabbit", "to be generous", "to run fast"}, Answer: "to cheat someone"},
			{Prompt: "Por mucho que ___, no lo convencerás.", Options: []string{"insistes", "insistas", "insistirás", "insististe"}, Answer: "insistas", Explanation: "Por mucho que with an unrealised outcome takes the subjunctive."},
		},
	},
	"fr": {
		"A": {
			{Prompt: "Comment dit-on \"good morning\" en français ?", Options: []string{"Bonsoir", "Bonjour", "Merci", "Salut"}, Answer: "Bonjour"},
			{Prompt: "Nous ___ français.", Options: []string{"parle", "parlons", "parlez", "parlent"}, Answer: "parlons"},
			{Prompt: "Le contraire de \"grand\" est...", Options: []string{"petit", "gros", "long", "haut"}, Answer: "petit"},
			{Prompt: "\"Pomme\" est...", Options: []string{"un fruit", "un animal", "une couleur", "un pays"}, Answer: "un fruit"},
		},
		"B": {
			{Prompt: "Il faut que tu ___ tes devoirs.", Options: []string{"fais", "fasses", "feras", "faisais"}, Answer: "fasses", Explanation: "Il faut que requires the subjunctive."},
			{Prompt: "Quand j'étais petit, je ___ au parc tous les jours.", Options: []string{"suis allé", "allais", "irai", "vais"}, Answer: "allais", Explanation: "Habitual past actions use the imparfait."},
			{Prompt: "\"Avoir le cafard\" signifie...", Options: []string{"to feel down", "to own a pet", "to be hungry", "to be lucky"}, Answer: "to feel down"},
		},
		"C": {
			{Prompt: "Bien qu'il ___ tard, elle continua.", Options: []string{"est", "fût", "sera", "était"}, Answer: "fût"},
			{Prompt: "\"Poser un lapin\" signifie...", Options: []string{"to stand someone up", "to adopt a rabbit", "to ask a question", "to set the table"}, Answer: "to stand someone up"},
		},
	},
}

// genericBank works for any target language: the learner answers about
// their own usage rather than a fixed sentence.
var genericBank = map[string][]PracticeQuestion{
	"A": {
		{Prompt: "Translate into your target language: \"My name is Alex.\"", Answer: "Free answer", Explanation: "Introduce yourself with the verb for 'to be called'."},
		{Prompt: "Write the numbers one to five in your target language.", Answer: "Free answer"},
		{Prompt: "Name three colours in your target language.", Answer: "Free answer"},
	},
	"B": {
		{Prompt: "Describe what you did last weekend in three sentences.", Answer: "Free answer", Explanation: "Practice past tenses."},
		{Prompt: "Write two sentences about your plans for next year.", Answer: "Free answer", Explanation: "Practice the future tense."},
		{Prompt: "Explain why you are learning this language.", Answer: "Free answer"},
	},
	"C": {
		{Prompt: "Argue for or against remote work in one paragraph.", Answer: "Free answer"},
		{Prompt: "Summarise a news story you read this week.", Answer: "Free answer"},
	},
}

func levelBand(level string) string {
	if level == "" {
		return "A"
	}
	return strings.ToUpper(level[:1])
}

// FallbackQuestions returns up to count questions for the language and level.
func FallbackQuestions(language, level string, count int) []PracticeQuestion {
	band := levelBand(level)
	var pool []PracticeQuestion
	if bands, ok := fallbackBank[strings.ToLower(language)]; ok {
		pool = bands[band]
	}
	if len(pool) == 0 {
		pool = genericBank[band]
	}
	if len(pool) == 0 {
		pool = genericBank["A"]
	}

	out := make([]PracticeQuestion, len(pool))
	copy(out, pool)
	return limitQuestions(out, count)
}
