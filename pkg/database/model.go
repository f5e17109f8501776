package database

// Story is the persisted record of one video-story generation job. It is
// created in pending state when a request is accepted and mutated only by
// the pipeline that owns it. At a terminal state exactly one of
// {ErrorMsg set, StatusCompleted with VideoPath set} holds.
type Story struct {
	ID           string      `gorm:"primaryKey" json:"id"`
	ProfileID    string      `json:"profile_id,omitempty"`
	Status       StoryStatus `gorm:"default:pending" json:"status"`
	ErrorMsg     string      `json:"error_message,omitempty"`
	VideoPath    string      `json:"video_path,omitempty"`
	ThumbnailURL string      `json:"thumbnail_url,omitempty"`
	StoryTextURL string      `json:"story_text_url,omitempty"`
	SubtitlesURL string      `json:"subtitles_url,omitempty"`
	CreatedAt    MyTime      `json:"created_at"`
	UpdatedAt    MyTime      `json:"updated_at"`
}

// StoryParams are the wizard-collected choices that seed a story. The
// Spanish field names match the wizard payload.
type StoryParams struct {
	Nombre             string `json:"nombre"`
	Edad               string `json:"edad"`
	PersonajePrincipal string `json:"personaje_principal"`
	Lugar              string `json:"lugar"`
	Villano            string `json:"villano"`
	ObjetoMagico       string `json:"objeto_magico"`
	TipoFinal          string `json:"tipo_final"`
	Acompanante        string `json:"acompanante,omitempty"`
	ColorFavorito      string `json:"color_favorito,omitempty"`
	Desafio            string `json:"desafio,omitempty"`
}

// Map returns the params as the generic mapping consumed by the narrative
// generator's field validation.
func (p StoryParams) Map() map[string]string {
	m := map[string]string{}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("nombre", p.Nombre)
	set("edad", p.Edad)
	set("personaje_principal", p.PersonajePrincipal)
	set("lugar", p.Lugar)
	set("villano", p.Villano)
	set("objeto_magico", p.ObjetoMagico)
	set("tipo_final", p.TipoFinal)
	set("acompanante", p.Acompanante)
	set("color_favorito", p.ColorFavorito)
	set("desafio", p.Desafio)
	return m
}
