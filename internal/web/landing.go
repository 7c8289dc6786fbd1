// landing.go -- Public marketing page for GET /.
package web

import "net/http"

type feature struct{ Title, Text string }

type step struct{ Number, Title, Text string }

type vehicle struct{ Name, Text, Tag string }

type area struct {
	Name      string
	Highlight bool
}

type testimonial struct{ Name, Location, Text string }

type stat struct{ Value, Label string }

type landingContent struct {
	Features     []feature
	Steps        []step
	Vehicles     []vehicle
	Areas        []area
	Testimonials []testimonial
	Stats        []stat
}

var landing = landingContent{
	Features: []feature{
		{"Pelo WhatsApp", "Peça seu táxi diretamente pelo WhatsApp, sem instalar nenhum app adicional. Simples assim."},
		{"IA que Entende Você", "Nossa inteligência artificial entende mensagens de texto e áudio em português natural."},
		{"Preço na Hora", "Saiba o valor da corrida antes de confirmar. Transparência total, sem surpresas no final."},
		{"Segurança Garantida", "Motoristas experientes e verificados da nossa frota local. Sua segurança é prioridade."},
		{"Cobertura Ampla", "Atendemos Capivari, Rafard, Santa Bárbara d'Oeste, Americana, Nova Odessa e região."},
		{"Pague Como Quiser", "Dinheiro, débito, crédito, Pix ou PicPay. Você escolhe a forma de pagamento."},
	},
	Steps: []step{
		{"01", "Envie uma mensagem", "Mande um 'oi' para nosso WhatsApp e comece a conversa"},
		{"02", "Informe os locais", "Diga de onde você quer sair e para onde quer ir"},
		{"03", "Confirme o preço", "Veja o valor estimado da corrida e confirme o pedido"},
		{"04", "Aguarde o motorista", "Acompanhe em tempo real a chegada do seu táxi"},
	},
	Vehicles: []vehicle{
		{"Carro", "Veículo padrão para até 4 passageiros", "Mais popular"},
		{"Moto", "Ideal para 1 pessoa com pressa", "Mais rápido"},
		{"Premium", "Veículo executivo com mais conforto", "Mais conforto"},
		{"Corporativo", "Para empresas com faturamento mensal", "Para empresas"},
	},
	Areas: []area{
		{"Capivari", true},
		{"Rafard", false},
		{"Santa Bárbara d'Oeste", false},
		{"Americana", false},
		{"Nova Odessa", false},
		{"Sumaré", false},
		{"Mirassol", false},
		{"São José do Rio Preto", false},
	},
	Testimonials: []testimonial{
		{"Maria Santos", "Capivari", "Muito prático! Não preciso baixar nada, só mando mensagem e o táxi chega rapidinho. Os motoristas são conhecidos aqui da cidade."},
		{"João Carlos", "Rafard", "Uso toda semana pra ir ao médico. O atendimento é rápido e sempre tem motorista disponível. Recomendo pra todo mundo!"},
		{"Ana Paula", "Santa Bárbara d'Oeste", "Finalmente um jeito fácil de chamar táxi! Minha mãe de 70 anos consegue usar sem problema. É só mandar mensagem no WhatsApp."},
	},
	Stats: []stat{
		{"500+", "Corridas por mês"},
		{"50+", "Motoristas parceiros"},
		{"8", "Cidades atendidas"},
		{"4.9", "Avaliação média"},
	},
}

// Landing handles GET / -- no session needed.
func (h *Handler) Landing(w http.ResponseWriter, r *http.Request) {
	v := h.newView(r, "Mi Chame - Táxi pelo WhatsApp", "landing")
	v.Data = landing
	h.render(w, r, http.StatusOK, "landing.html", v)
}
