package config

import "strings"

// ListRow is one selectable option in an interactive list.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ListSection groups rows under a heading.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// ListMessage is an interactive list: title, prompt, button label, sections.
type ListMessage struct {
	Title    string        `json:"title"`
	Prompt   string        `json:"prompt"`
	Button   string        `json:"button"`
	Sections []ListSection `json:"sections"`
}

// Location is a map pin plus its follow-up caption.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
}

// Content is the reply catalog: every text, list and keyword set the router
// sends or matches. It is data, not behavior, and can be hot-reloaded from a
// JSON file without touching routing logic. Texts may carry {name}, {age} and
// {modality} placeholders filled at send time.
type Content struct {
	DefaultLeadName string `json:"default_lead_name"`

	// Trigger vocabularies, matched as lowercase substrings.
	Greetings        []string            `json:"greetings"`
	ScheduleKeywords []string            `json:"schedule_keywords"`
	PriceKeywords    []string            `json:"price_keywords"`
	LocationKeywords []string            `json:"location_keywords"`
	HumanKeywords    []string            `json:"human_keywords"`
	ModalityAliases  map[string][]string `json:"modality_aliases"`

	// Main menu
	MainMenu ListMessage `json:"main_menu"`

	// Profiling quiz
	QuizIntro          string            `json:"quiz_intro"`
	AskAge             string            `json:"ask_age"`
	AgeRetry           string            `json:"age_retry"`
	GoalPrompt         ListMessage       `json:"goal_prompt"`
	ExperiencePrompt   ListMessage       `json:"experience_prompt"`
	AgeAck             string            `json:"age_ack"`
	Recommendations    map[string]string `json:"recommendations"`
	RecommendationMenu ListMessage       `json:"recommendation_menu"`

	// Schedule and modality details
	ScheduleList     ListMessage       `json:"schedule_list"`
	ModalityDetails  map[string]string `json:"modality_details"`
	ModalityFallback string            `json:"modality_fallback"`
	OtherModalities  string            `json:"other_modalities"`
	NextSteps        ListMessage       `json:"next_steps"`

	// Static info
	Prices         string   `json:"prices"`
	BookingIntro   string   `json:"booking_intro"`
	Location       Location `json:"location"`
	LocationFollow string   `json:"location_follow"`

	// Handoff and owner commands
	HandoffAck  string `json:"handoff_ack"`
	BotResumed  string `json:"bot_resumed"`
	BotPaused   string `json:"bot_paused"`
	ResetDone   string `json:"reset_done"`
	DebugPrefix string `json:"debug_prefix"`

	// Inbound lead shortcuts
	ScheduleLeadMarkers  []string `json:"schedule_lead_markers"`
	ScheduleLeadGreeting string   `json:"schedule_lead_greeting"`
	SiteLeadMarker       string   `json:"site_lead_marker"`
	SiteMessageSeparator string   `json:"site_message_separator"`
	SiteLeadKnown        string   `json:"site_lead_known"`
	SiteLeadUnknown      string   `json:"site_lead_unknown"`
	KeywordScheduleIntro string   `json:"keyword_schedule_intro"`

	// Media and calls
	CallAutoReply string `json:"call_auto_reply"`
	AudioAck      string `json:"audio_ack"`

	// Generative fallback
	SystemPrompt   string `json:"system_prompt"`
	UnknownReply   string `json:"unknown_reply"`
	NoAPIKeyReply  string `json:"no_api_key_reply"`
	ModelBusyReply string `json:"model_busy_reply"`
	ModelDownReply string `json:"model_down_reply"`

	// Operator alerts
	HandoffAlert    string `json:"handoff_alert"`
	ReadAlert       string `json:"read_alert"`
	LeadAlert       string `json:"lead_alert"`
	AlertCallToAct  string `json:"alert_call_to_action"`
	GreetingEmoji   string `json:"greeting_emoji"`
	AudioEmoji      string `json:"audio_emoji"`

	// Follow-ups, keyed by stage name.
	FollowUpMessages map[string]string `json:"follow_up_messages"`
}

// Render fills the {name}, {age} and {modality} placeholders in a text.
func Render(text string, pairs ...string) string {
	if len(pairs) == 0 {
		return text
	}
	oldnew := make([]string, 0, len(pairs))
	for i := 0; i+1 < len(pairs); i += 2 {
		oldnew = append(oldnew, "{"+pairs[i]+"}", pairs[i+1])
	}
	return strings.NewReplacer(oldnew...).Replace(text)
}

// DefaultContent returns the built-in Portuguese catalog.
func DefaultContent() *Content {
	return &Content{
		DefaultLeadName: "Aluno",

		Greetings:        []string{"oi", "ola", "olá", "bom dia", "boa tarde", "boa noite", "menu", "iniciar", "start", "começar"},
		ScheduleKeywords: []string{"grade", "horario", "horário", "aulas", "turmas"},
		PriceKeywords:    []string{"preco", "preço", "valor", "custo", "mensalidade"},
		LocationKeywords: []string{"endereco", "endereço", "onde fica", "local", "mapa"},
		HumanKeywords:    []string{"humano", "atendente", "falar com gente", "suporte"},
		ModalityAliases: map[string][]string{
			"street":    {"street", "urbana", "funk"},
			"jazz":      {"jazz", "contempor"},
			"kpop":      {"k-pop", "kpop"},
			"ritmos":    {"ritmos", "ballet"},
			"teatro":    {"teatro", "acrobacia"},
			"heels":     {"heels", "salto"},
			"lutas":     {"luta", "muay", "jiu"},
			"populares": {"populares", "culture", "hall"},
			"salao":     {"salao", "salão", "gafieira"},
		},

		MainMenu: ListMessage{
			Title:  "Menu XPACE",
			Prompt: "Olá, {name}! Sou o X-Bot.\nEscolha uma opção:",
			Button: "ABRIR MENU",
			Sections: []ListSection{{
				Title: "Navegação",
				Rows: []ListRow{
					{ID: "menu_dance", Title: "💃 Quero Dançar", Description: "Encontre sua turma"},
					{ID: "menu_schedule", Title: "📅 Grade de Horários", Description: "Ver dias e horas"},
					{ID: "menu_prices", Title: "💰 Ver Preços", Description: "Planos e valores"},
					{ID: "menu_location", Title: "📍 Localização", Description: "Endereço e mapa"},
					{ID: "menu_human", Title: "🙋‍♂️ Falar com Humano", Description: "Atendimento equipe"},
				},
			}},
		},

		QuizIntro: "Que incrível que você quer dançar com a gente! 🤩\n\nPara eu te indicar a turma perfeita, preciso te conhecer um pouquinho melhor.\n\nPrimeiro, *como você gostaria de ser chamado?*",
		AskAge:    "Prazer, {name}! 😉\n\nAgora me conta: qual a sua idade (ou da criança que vai dançar)?\n_(Digite apenas o número)_",
		AgeRetry:  "Ops, não entendi! Digite apenas a idade (número). Ex: 15",
		AgeAck:    "Entendi, {age} anos!",
		GoalPrompt: ListMessage{
			Title:  "Seu Objetivo",
			Prompt: "E o que você busca na dança?",
			Button: "ESCOLHER",
			Sections: []ListSection{{
				Title: "Objetivos",
				Rows: []ListRow{
					{ID: "goal_fun", Title: "🎉 Diversão", Description: "Dançar por prazer"},
					{ID: "goal_fitness", Title: "💪 Condicionamento", Description: "Saúde e movimento"},
					{ID: "goal_professional", Title: "🏆 Evoluir na dança", Description: "Técnica e palco"},
				},
			}},
		},
		ExperiencePrompt: ListMessage{
			Title:  "Sua Experiência",
			Prompt: "Você já dançou antes?",
			Button: "ESCOLHER",
			Sections: []ListSection{{
				Title: "Nível",
				Rows: []ListRow{
					{ID: "exp_beginner", Title: "🌱 Nunca dancei", Description: "Começando do zero"},
					{ID: "exp_intermediate", Title: "🔥 Já dancei um pouco", Description: "Tenho alguma base"},
					{ID: "exp_advanced", Title: "⚡ Danço há anos", Description: "Quero desafio"},
				},
			}},
		},
		Recommendations: map[string]string{
			"kids":  "Para essa idade, temos o **Baby Class** (3-5 anos) e o **Kids** (6-11 anos)! 🧸✨\n\n- Ballet\n- Jazz\n- Street Dance\n\nQuer ver os horários dessas turmas?",
			"teen":  "Show! Para teens (12-15 anos), a energia é lá em cima! ⚡\n\n- Street Dance\n- K-Pop\n- Jazz\n\nQuer ver a grade teen?",
			"adult": "Para adultos (16+), temos turmas incríveis, do iniciante ao avançado! 🔥\n\n- Street / Hip Hop\n- Jazz & Heels\n- Ritmos / Fit\n\nQuer conferir os horários?",
		},
		RecommendationMenu: ListMessage{
			Title:  "Recomendação",
			Prompt: "Como quer prosseguir?",
			Button: "VER OPÇÕES",
			Sections: []ListSection{{
				Title: "Próximos Passos",
				Rows: []ListRow{
					{ID: "menu_schedule", Title: "📅 Ver Horários", Description: "Ver grade completa"},
					{ID: "mod_outros", Title: "✨ Ver Estilos", Description: "Saber mais sobre as aulas"},
				},
			}},
		},

		ScheduleList: ListMessage{
			Title:  "Grade de Horários 📅",
			Prompt: "Toque em uma modalidade:",
			Button: "VER GRADE",
			Sections: []ListSection{{
				Title: "Modalidades",
				Rows: []ListRow{
					{ID: "mod_street", Title: "👟 Street / Urban", Description: "Kids, Teens, Adulto"},
					{ID: "mod_jazz", Title: "🦢 Jazz / Contemp.", Description: "Técnico, Funk, Lyrical"},
					{ID: "mod_kpop", Title: "🇰🇷 K-Pop", Description: "Coreografias"},
					{ID: "mod_ritmos", Title: "💃 Ritmos / Ballet", Description: "Fit e clássico"},
					{ID: "mod_outros", Title: "✨ Ver Todas", Description: "Heels, Lutas, Ballet"},
				},
			}},
		},
		ModalityDetails: map[string]string{
			"street": "👟 *STREET & FUNK*\n\n*KIDS (5+):* Seg/Qua 08h, 14h30, 19h\n*TEENS/JUNIOR (12+):* Seg/Qua 19h | Ter/Qui 09h, 14h30\n*INICIANTE (12+):* Ter/Qui 20h\n*SENIOR/ADULTO (16+):* Seg/Qua 20h, Sex 19h, Sáb 10h\n*STREET FUNK (15+):* Sex 20h",
			"jazz":   "🦢 *JAZZ & CONTEMP.*\n\n*JAZZ FUNK (15+):* Ter 19h, Sáb 09h\n*JAZZ (18+):* Seg/Qua 20h (Inic) | Seg/Qua 21h\n*CONTEMP (12+):* Seg/Qua 19h",
			"kpop":   "🇰🇷 *K-POP (12+)*\n\nTer/Qui 20h (XTAGE)",
			"ritmos": "💃 *RITMOS & BALLET*\n\n*RITMOS/FIT (15+):* Seg/Qua 08h, 19h | Ter/Qui 19h\n*BALLET (12+):* Ter/Qui 21h",
			"heels":  "👠 *HEELS (15+)*\n\nQui 17h, 18h, 19h | Sáb 11h, 12h",
		},
		ModalityFallback: "Ainda estamos atualizando os horários desta modalidade! 😅",
		OtherModalities:  "✨ *OUTRAS MODALIDADES*\n\n👠 HEELS\n🥊 LUTAS\n🩰 BALLET\n🇧🇷 POPULARES\n💃 DANÇA DE SALÃO",
		NextSteps: ListMessage{
			Title:  "Próximos Passos",
			Prompt: "Gostou dos horários?",
			Button: "O QUE FAZER?",
			Sections: []ListSection{{
				Title: "Ações",
				Rows: []ListRow{
					{ID: "final_booking", Title: "📅 Agendar Aula", Description: "Quero experimentar!"},
					{ID: "menu_menu", Title: "🔙 Ver outras opções", Description: "Voltar ao menu"},
				},
			}},
		},

		Prices:       "💰 *INVESTIMENTO XPACE (2026)* 🚀\n\n💎 *PASSE LIVRE:* R$ 350/mês\n*2x NA SEMANA:* Mensal R$ 215 | Semestral R$ 195 | Anual R$ 165\n\n🔗 *GARANTIR VAGA:* https://venda.nextfit.com.br/54a0cf4a-176f-46d3-b552-aad35019a4ff/contratos",
		BookingIntro: "Maravilha! Vamos agendar. 🤩\n\nVocê pode garantir sua vaga direto pelo nosso sistema ou ver os valores primeiro.",
		Location: Location{
			Latitude:  -26.296210,
			Longitude: -48.845500,
			Name:      "XPACE",
			Address:   "Rua Tijucas, 401 - Joinville",
		},
		LocationFollow: "Estamos no coração de Joinville! 📍\n\n✅ Estacionamento gratuito.\n_Digite 0 para voltar._",

		HandoffAck:  "Sem problemas! Já chamei alguém da equipe pra te ajudar. Aguarde! ⏳",
		BotResumed:  "🤖 Bot retomado! Voltei a comandar.",
		BotPaused:   "🛑 Bot pausado por 30min.",
		ResetDone:   "♻️ Tudo limpo! Memória e Fluxo reiniciados.",
		DebugPrefix: "🐛 *DEBUG* 🐛\nFlow State: ",

		ScheduleLeadMarkers:  []string{"Vi a aula de", "agendar uma experimental"},
		ScheduleLeadGreeting: "Olá, {name}! 👋\n\nQue legal que você se interessou pela aula da grade! 🤩",
		SiteLeadMarker:       "NOVA MENSAGEM DO SITE",
		SiteMessageSeparator: "*Mensagem:*",
		SiteLeadKnown:        "Olá, {name}! 👋\n\nVi que você tem interesse em *{modality}*! Ótima escolha. 🤩",
		SiteLeadUnknown:      "Olá! Recebi sua mensagem. Como sou um robô, não entendi exatamente o que você disse, mas escolha uma opção abaixo que eu te ajudo! 👇",
		KeywordScheduleIntro: "Olá, {name}! 👋\n\nVi que você quer saber nossos horários. É pra já!",

		CallAutoReply: "🤖 *Atendimento Automático*\n\nOi! Eu sou o X-Bot virtual e não consigo atender chamadas de voz/vídeo. 📵\n\nPor favor, *envie sua dúvida por texto ou áudio aqui no chat* que eu te respondo na hora! ⚡",
		AudioAck:      "Opa, já estou ouvindo seu áudio, {name}! 🏃‍♂️",

		SystemPrompt:   defaultSystemPrompt,
		UnknownReply:   "Ainda estou aprendendo sobre isso! 😅 Mas veja o que eu sei fazer:",
		NoAPIKeyReply:  "No momento estou sem meu cérebro de IA! 🤖 Mas escolha uma opção do menu que eu te ajudo.",
		ModelBusyReply: "Estou recebendo muitas mensagens agora! 🥵 Me manda de novo em instantes?",
		ModelDownReply: "Tive um probleminha técnico aqui. 😅 Tenta de novo ou escolha uma opção do menu!",

		HandoffAlert:   "🚨 SOLICITAÇÃO DE HUMANO: {name}",
		ReadAlert:      "👁️ Lead [{name}] visualizou o Link de Agendamento/Detalhes!",
		LeadAlert:      "🚀 NOVO LEAD: {intent}\nDe: {name}",
		AlertCallToAct: "Favor entrar em contato!",
		GreetingEmoji:  "👋",
		AudioEmoji:     "🎧",

		FollowUpMessages: map[string]string{
			"reminder_15m": "Ei, {name}! 😊\n\nFicou alguma dúvida sobre os valores ou horários? Tô aqui pra ajudar! 💬",
			"reminder_2h":  "Opa, {name}! 🎉\n\nLembrete rápido: sua *primeira aula é por nossa conta*! Que tal agendar pra essa semana?\n\n📅 Responde \"quero agendar\" que eu te ajudo!",
			"reminder_24h": "{name}, última chance! 🔥\n\nAs turmas de Janeiro estão quase cheias! Se quiser garantir sua vaga, é só responder essa mensagem.\n\nPosso te ajudar com algo? 😊",
		},
	}
}

const defaultSystemPrompt = `Você é o assistente virtual da XPACE, a maior escola de danças urbanas de Joinville/SC.
Seu tom de voz é jovem, acolhedor, descolado, mas profissional.
Nunca invente informações. Se não souber, responda com a tag [UNKNOWN].

Você pode incluir UMA das tags abaixo na resposta para acionar uma função:
[SHOW_MENU] [SHOW_PRICES] [SHOW_SCHEDULE] [SHOW_LOCATION] [HANDOFF] [UNKNOWN]

Informações da Escola:
- Nome: XPACE
- Localização: Joinville, SC
- Estilos: Hip Hop, Jazz Funk, K-Pop, Urban Dance, Heels, Ballet, Ritmos.
- Aulas: Presenciais.
- Níveis: Iniciante, Intermediário e Avançado.

Comportamento:
- Se o usuário perguntar preço, use [SHOW_PRICES].
- Se o usuário quiser horários, use [SHOW_SCHEDULE].
- Se pedir humano ou reclamar, use [HANDOFF].
- Respostas curtas e diretas (max 3 frases para WhatsApp).`
