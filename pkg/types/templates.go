package types

// Template identifies a predefined column layout.
type Template string

const (
	TemplateClassic           Template = "classic"
	Template4L                Template = "4l"
	TemplateStartStopContinue Template = "start-stop-continue"
	TemplateCustom            Template = "custom"
)

// TemplateColumn is a column blueprint; positions are assigned in order.
type TemplateColumn struct {
	Title string `json:"title"`
	Color string `json:"color"`
}

var templateColumns = map[Template][]TemplateColumn{
	TemplateClassic: {
		{Title: "Ce qui s'est bien passé 😊", Color: "#10b981"},
		{Title: "Ce qui s'est moins bien passé 😟", Color: "#ef4444"},
		{Title: "Idées d'amélioration 💡", Color: "#3b82f6"},
	},
	Template4L: {
		{Title: "Learned (Appris) 📚", Color: "#8b5cf6"},
		{Title: "Liked (Aimé) ❤️", Color: "#ec4899"},
		{Title: "Lacked (Manqué) 🔍", Color: "#f59e0b"},
		{Title: "Longed for (Désiré) 🌟", Color: "#06b6d4"},
	},
	TemplateStartStopContinue: {
		{Title: "Start (Commencer) 🚀", Color: "#10b981"},
		{Title: "Stop (Arrêter) 🛑", Color: "#ef4444"},
		{Title: "Continue (Continuer) ➡️", Color: "#3b82f6"},
	},
	TemplateCustom: {},
}

// TemplateColumns returns the column blueprints for t. The custom
// template has none; callers supply their own column list.
func TemplateColumns(t Template) ([]TemplateColumn, bool) {
	cols, ok := templateColumns[t]
	return cols, ok
}
