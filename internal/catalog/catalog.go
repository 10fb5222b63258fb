package catalog

import "sort"

// Category is a named group of challenge task templates.
type Category struct {
	Key   string
	Name  string
	Icon  string
	Tasks []string
}

// Catalog is the static challenge catalog. It is built once at startup and
// never mutated, so it is safe to share across goroutines.
type Catalog struct {
	categories map[string]Category
	keys       []string
	ghosts     []string
}

func New(categories []Category, ghosts []string) *Catalog {
	byKey := make(map[string]Category, len(categories))
	keys := make([]string, 0, len(categories))
	for _, category := range categories {
		byKey[category.Key] = category
		keys = append(keys, category.Key)
	}
	sort.Strings(keys)
	return &Catalog{categories: byKey, keys: keys, ghosts: ghosts}
}

func (c *Catalog) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *Catalog) Category(key string) (Category, bool) {
	category, ok := c.categories[key]
	return category, ok
}

func (c *Catalog) Size() int {
	return len(c.keys)
}

func (c *Catalog) Ghosts() []string {
	out := make([]string, len(c.ghosts))
	copy(out, c.ghosts)
	return out
}

// Default returns the built-in Phasmophobia challenge catalog. Keys are stable
// because they end up embedded in stored challenge identifiers.
func Default() *Catalog {
	return New([]Category{
		{
			Key:  "evidence",
			Name: "Evidence Hunt",
			Icon: "🔦",
			Tasks: []string{
				"Identify the ghost using only two pieces of evidence.",
				"Complete a contract without ever using the EMF reader.",
				"Confirm the ghost type with the spirit box as your first evidence.",
				"Finish an investigation using only tier one equipment.",
			},
		},
		{
			Key:  "speedrun",
			Name: "Speedrun",
			Icon: "⏱️",
			Tasks: []string{
				"Identify the ghost in under five minutes on any small map.",
				"Complete all optional objectives in under ten minutes.",
				"Leave with a correct guess before the first hunt begins.",
			},
		},
		{
			Key:  "nightmare",
			Name: "Nightmare Contract",
			Icon: "💀",
			Tasks: []string{
				"Complete a Nightmare difficulty contract without any deaths.",
				"Survive two hunts on Nightmare difficulty and still guess correctly.",
				"Finish a Nightmare contract on a medium map with no sanity pills.",
			},
		},
		{
			Key:  "photo",
			Name: "Photo Evidence",
			Icon: "📸",
			Tasks: []string{
				"Collect a three-star ghost photo.",
				"Photograph every interaction in a single contract.",
				"Fill the photo journal before identifying the ghost.",
				"Capture a photo of the ghost during a hunt and survive.",
			},
		},
		{
			Key:  "sanity",
			Name: "Sanity Challenge",
			Icon: "🧠",
			Tasks: []string{
				"Complete a contract without letting average sanity drop below 50%.",
				"Identify the ghost while your own sanity is below 20%.",
				"Finish an investigation without using any sanity pills.",
			},
		},
		{
			Key:  "cursed",
			Name: "Cursed Possessions",
			Icon: "🕯️",
			Tasks: []string{
				"Use the ouija board to find the ghost room, then finish the contract.",
				"Draw three tarot cards and still complete every objective.",
				"Trigger a cursed hunt with the music box and survive it.",
				"Use the haunted mirror and leave with a correct ghost guess.",
			},
		},
	}, []string{
		"Banshee",
		"Demon",
		"Deogen",
		"Mare",
		"Moroi",
		"Myling",
		"Obake",
		"Phantom",
		"Poltergeist",
		"Revenant",
		"Shade",
		"Thaye",
		"The Mimic",
		"The Twins",
		"Wraith",
		"Yokai",
	})
}
