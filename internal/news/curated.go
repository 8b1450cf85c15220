package news

// Curated returns the built-in headline list. Each call returns a fresh slice.
func Curated() []Article {
	return []Article{
		{
			Title:   "Gluten-Free Travel in Europe: A Guide to Safe Dining",
			Date:    "May 2025",
			Content: "A comprehensive guide to gluten-free dining in Europe, including tips for navigating menus, restaurant recommendations, and essential phrases for communicating dietary needs.",
			URL:     "https://www.theglutenfreetravelers.com/europe/",
		},
		{
			Title:   "50 Gluten-Free Recipes for Every Meal of the Day",
			Date:    "May 2025",
			Content: "From breakfast to dessert, this collection of gluten-free recipes proves that living without gluten doesn't mean sacrificing flavor. Includes tips for ingredient substitutions and cooking techniques.",
			URL:     "https://www.glutenfreegirl.com/recipes/",
		},
		{
			Title:   "Gluten-Free Living: Tips for a Successful Transition",
			Date:    "April 2025",
			Content: "Expert advice on making the switch to a gluten-free lifestyle, including kitchen organization, grocery shopping tips, and meal planning strategies.",
			URL:     "https://www.glutenfreegirl.com/living/",
		},
		{
			Title:   "Celiac Disease Research Update",
			Date:    "May 2025",
			Content: "The latest developments in celiac disease research, including new diagnostic methods and potential treatments on the horizon.",
			URL:     "https://celiac.org/about-celiac-disease/research-news/",
		},
		{
			Title:   "Gluten-Free Baking Made Easy",
			Date:    "March 2025",
			Content: "Learn the basics of gluten-free baking with this comprehensive guide that covers essential ingredients, equipment, and techniques for perfect results every time.",
			URL:     "https://www.glutenfreegirl.com/baking/",
		},
		{
			Title:   "Traveling with Celiac Disease: What You Need to Know",
			Date:    "February 2025",
			Content: "Practical tips for traveling with celiac disease, including packing lists, airline considerations, and destination-specific advice.",
			URL:     "https://www.theglutenfreetravelers.com/travel-tips/",
		},
	}
}
