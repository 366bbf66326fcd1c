package topics

import (
	"fmt"

	"deletutor/internal/domain"
)

var defaultTopics = []domain.Topic{
	{
		ID:            "trabajo",
		Label:         "Trabajo y Estudios",
		Description:   "Describe tu trabajo ideal, una experiencia laboral o tus estudios.",
		PromptContext: "El alumno habla sobre su experiencia laboral, estudios o aspiraciones profesionales.",
	},
	{
		ID:            "viajes",
		Label:         "Viajes y Turismo",
		Description:   "Habla sobre un viaje memorable, el turismo en tu país o vacaciones.",
		PromptContext: "El alumno describe una experiencia de viaje, turismo o vacaciones.",
	},
	{
		ID:            "salud",
		Label:         "Salud y Bienestar",
		Description:   "Hábitos de vida saludable, deporte, o el sistema sanitario.",
		PromptContext: "El alumno habla sobre salud, hábitos saludables, deporte o medicina.",
	},
	{
		ID:            "medio_ambiente",
		Label:         "Medio Ambiente",
		Description:   "El cambio climático, reciclaje, o problemas medioambientales.",
		PromptContext: "El alumno opina sobre el medio ambiente, la contaminación o la naturaleza.",
	},
	{
		ID:            "educacion",
		Label:         "Educación",
		Description:   "El sistema educativo, aprendizaje de idiomas o nuevas tecnologías.",
		PromptContext: "El alumno debate sobre la educación, los profesores o el aprendizaje.",
	},
	{
		ID:            "relaciones",
		Label:         "Relaciones Personales",
		Description:   "La amistad, la familia, o las relaciones en el mundo moderno.",
		PromptContext: "El alumno habla sobre la familia, amigos o relaciones sociales.",
	},
}

// Catalog is an immutable, ordered list of practice topics.
type Catalog struct {
	topics []domain.Topic
	byID   map[string]int
}

// Default returns the built-in DELE B2 topic catalog.
func Default() *Catalog {
	catalog, _ := New(defaultTopics)
	return catalog
}

// New builds a catalog, rejecting empty or duplicate ids.
func New(topics []domain.Topic) (*Catalog, error) {
	c := &Catalog{
		topics: make([]domain.Topic, 0, len(topics)),
		byID:   make(map[string]int, len(topics)),
	}
	for _, topic := range topics {
		if topic.ID == "" {
			return nil, fmt.Errorf("topic %q has an empty id", topic.Label)
		}
		if _, dup := c.byID[topic.ID]; dup {
			return nil, fmt.Errorf("duplicate topic id %q", topic.ID)
		}
		c.byID[topic.ID] = len(c.topics)
		c.topics = append(c.topics, topic)
	}
	return c, nil
}

// All returns a copy of the topics in catalog order.
func (c *Catalog) All() []domain.Topic {
	out := make([]domain.Topic, len(c.topics))
	copy(out, c.topics)
	return out
}

// Lookup finds a topic by id.
func (c *Catalog) Lookup(id string) (domain.Topic, error) {
	idx, ok := c.byID[id]
	if !ok {
		return domain.Topic{}, fmt.Errorf("%w: %q", domain.ErrUnknownTopic, id)
	}
	return c.topics[idx], nil
}
