package config

// CategoryWeights orders command categories in /help.
var CategoryWeights = map[string]int{
	"🎵 Music":        0,
	"🔊 Voice":        10,
	"🕯️ Information": 20,
	"🛠️ Maintenance": 30,
}

// AppName is shown in embeds and logs.
const AppName = "An29 Music"
