package service

var modifiers = []string{
	"Amber", "Ancient", "Arctic", "Autumn", "Bold", "Brave", "Bright", "Brisk",
	"Calm", "Clever", "Cobalt", "Coral", "Crimson", "Curious", "Dapper", "Daring",
	"Dusky", "Eager", "Electric", "Emerald", "Fearless", "Fierce", "Gentle", "Gilded",
	"Glowing", "Golden", "Graceful", "Hidden", "Humble", "Icy", "Indigo", "Jolly",
	"Keen", "Kind", "Lively", "Lucky", "Lunar", "Marble", "Merry", "Mighty",
	"Misty", "Noble", "Nimble", "Patient", "Polar", "Proud", "Quiet", "Quick",
	"Radiant", "Restless", "Rustic", "Scarlet", "Silent", "Silver", "Solar", "Steady",
	"Stormy", "Swift", "Tidal", "Twilight", "Velvet", "Vivid", "Wandering", "Witty",
}

var nouns = []string{
	"Albatross", "Antelope", "Badger", "Bear", "Beaver", "Bison", "Cheetah", "Condor",
	"Cougar", "Coyote", "Crane", "Dolphin", "Dove", "Eagle", "Elk", "Falcon",
	"Ferret", "Finch", "Fox", "Gazelle", "Gecko", "Heron", "Hawk", "Ibis",
	"Jaguar", "Kestrel", "Koala", "Lark", "Lemur", "Leopard", "Lion", "Lynx",
	"Magpie", "Marten", "Mole", "Moose", "Narwhal", "Newt", "Ocelot", "Orca",
	"Osprey", "Otter", "Owl", "Panda", "Panther", "Pelican", "Penguin", "Puffin",
	"Quail", "Raven", "Robin", "Salmon", "Seal", "Sparrow", "Stag", "Swan",
	"Tiger", "Toucan", "Turtle", "Viper", "Walrus", "Weasel", "Wolf", "Wren",
}

var epithets = []string{
	"Bold", "Brave", "Builder", "Calm", "Dreamer", "Elder", "Explorer", "Fair",
	"Gardener", "Great", "Just", "Keeper", "Kind", "Learned", "Listener", "Mapmaker",
	"Navigator", "Patient", "Pathfinder", "Quiet", "Ready", "Scholar", "Seeker", "Steadfast",
	"Storyteller", "Swift", "Tinkerer", "True", "Voyager", "Watcher", "Wise", "Young",
}
