package catalog

// DefaultVersion is bumped whenever the built-in taxonomy changes.
const DefaultVersion = "2025.1"

// DefaultFallback is where link repair sends tasks whose category vanished.
const DefaultFallback = "Pessoal"

var defaultEntries = []Entry{
	{
		Name: "Pessoal", Icon: "user", Color: "#6366F1",
		Description:   "Assuntos pessoais e do dia a dia",
		Subcategories: []string{"Rotina", "Documentos", "Compras", "Autocuidado"},
	},
	{
		Name: "Trabalho", Icon: "briefcase", Color: "#0EA5E9",
		Description:   "Projetos, reuniões e entregas profissionais",
		Subcategories: []string{"Reuniões", "Projetos", "Prazos", "Administrativo"},
	},
	{
		Name: "Finanças", Icon: "wallet", Color: "#10B981",
		Description:   "Contas, receitas e investimentos",
		Subcategories: []string{"Contas a pagar", "Receitas", "Investimentos", "Impostos", "Cartão de crédito"},
	},
	{
		Name: "Saúde", Icon: "heart-pulse", Color: "#EF4444",
		Description:   "Consultas, exames e bem-estar",
		Subcategories: []string{"Consultas", "Exames", "Medicamentos", "Exercícios"},
	},
	{
		Name: "Casa", Icon: "home", Color: "#F59E0B",
		Description:   "Manutenção e organização do lar",
		Subcategories: []string{"Limpeza", "Manutenção", "Mercado", "Contas da casa"},
	},
	{
		Name: "Estudos", Icon: "book-open", Color: "#8B5CF6",
		Description:   "Cursos, leituras e aprendizado",
		Subcategories: []string{"Cursos", "Leitura", "Provas", "Idiomas"},
	},
	{
		Name: "Lazer", Icon: "sparkles", Color: "#EC4899",
		Description:   "Hobbies, viagens e entretenimento",
		Subcategories: []string{"Viagens", "Hobbies", "Eventos", "Esportes"},
	},
	{
		Name: "Família", Icon: "users", Color: "#14B8A6",
		Description:   "Compromissos com a família",
		Subcategories: []string{"Filhos", "Datas especiais", "Visitas"},
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(DefaultVersion, DefaultFallback, defaultEntries)
	if err != nil {
		panic("catalog: invalid built-in catalog: " + err.Error())
	}
	return c
}
