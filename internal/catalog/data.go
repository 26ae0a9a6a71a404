package catalog

import "github.com/vladislavdragonenkov/cart/internal/domain"

func price(v float64) *float64 { return &v }

// sauceGroup — общий для всего меню набор соусов: премиальные по 0.50,
// остальные бесплатные.
func sauceGroup(maxChoices int) domain.OptionGroup {
	return domain.OptionGroup{
		Name:       "sauces",
		Mode:       domain.GroupModeMulti,
		MaxChoices: maxChoices,
		Choices: []domain.Choice{
			{Name: "Blanche", Price: 0.50},
			{Name: "Smoky", Price: 0.50},
			{Name: "Chili Thaï", Price: 0.50},
			{Name: "Mayo Truffe", Price: 0.50},
			{Name: "Fromagère", Price: 0.50},
			{Name: "Mayonnaise", Price: 0},
			{Name: "Ketchup", Price: 0},
			{Name: "Algérienne", Price: 0},
			{Name: "Barbecue", Price: 0},
			{Name: "Samouraï", Price: 0},
			{Name: "Andalouse", Price: 0},
			{Name: "Harissa", Price: 0},
		},
	}
}

// removeGroup — бесплатные опции "убрать ингредиент".
func removeGroup() domain.OptionGroup {
	return domain.OptionGroup{
		Name: "remove",
		Mode: domain.GroupModeMulti,
		Choices: []domain.Choice{
			{Name: "Sans salade", Price: 0},
			{Name: "Sans tomate", Price: 0},
			{Name: "Sans oignon", Price: 0},
		},
	}
}

func supplementsGroup() domain.OptionGroup {
	return domain.OptionGroup{
		Name: "supplements",
		Mode: domain.GroupModeMulti,
		Choices: []domain.Choice{
			{Name: "Cheddar", Price: 1.00},
			{Name: "Bacon", Price: 2.00},
			{Name: "Œuf", Price: 1.00},
			{Name: "Steak supplémentaire", Price: 2.50},
		},
	}
}

func drinkGroup() domain.OptionGroup {
	return domain.OptionGroup{
		Name: "drink",
		Mode: domain.GroupModeSingle,
		Choices: []domain.Choice{
			{Name: "Cola", Price: 0},
			{Name: "Cola Zéro", Price: 0},
			{Name: "Oasis Tropical", Price: 0},
			{Name: "Eau", Price: 0},
		},
	}
}

// DefaultProducts возвращает меню storefront по умолчанию. Цены и составы
// групп повторяют прайс заведения: smash-бургеры от 6.00, signature от 10.50,
// тако ценится выбором количества виандов (7/8/10).
func DefaultProducts() []domain.Product {
	burgerGroups := []domain.OptionGroup{
		supplementsGroup(),
		sauceGroup(2),
		removeGroup(),
	}

	return []domain.Product{
		{ID: 1, Slug: "smash-classique", Name: "Classique", Price: price(6.00), OptionGroups: burgerGroups},
		{ID: 2, Slug: "smash-double", Name: "Double", Price: price(7.50), OptionGroups: burgerGroups},
		{ID: 3, Slug: "smash-bacon", Name: "Bacon", Price: price(7.50), OptionGroups: burgerGroups},
		{ID: 4, Slug: "smash-double-bacon", Name: "Double Bacon", Price: price(8.00), OptionGroups: burgerGroups},
		{ID: 5, Slug: "smash-chicken", Name: "Chicken", Price: price(8.00), OptionGroups: burgerGroups},
		{ID: 6, Slug: "smash-chevre-miel", Name: "Chèvre Miel", Price: price(8.00), OptionGroups: burgerGroups},
		{ID: 7, Slug: "signature-kuisto", Name: "Kuisto", Price: price(10.50), OptionGroups: burgerGroups},
		{ID: 8, Slug: "signature-pistachio", Name: "Pistachio", Price: price(12.50), OptionGroups: burgerGroups},
		{ID: 9, Slug: "signature-le-veggie", Name: "Le Veggie", Price: price(11.50), OptionGroups: burgerGroups},
		{
			// Цена тако целиком определяется выбором количества виандов.
			ID: 20, Slug: "tacos", Name: "Tacos", Price: nil,
			OptionGroups: []domain.OptionGroup{
				{
					Name: domain.SizeGroup,
					Mode: domain.GroupModeSingle,
					Choices: []domain.Choice{
						{Name: "1 viande", Price: 7.00},
						{Name: "2 viandes", Price: 8.00},
						{Name: "3 viandes", Price: 10.00},
					},
				},
				{
					Name:       "meats",
					Mode:       domain.GroupModeMulti,
					MaxChoices: 3,
					Choices: []domain.Choice{
						{Name: "Poulet mariné", Price: 0},
						{Name: "Kefta", Price: 0},
						{Name: "Tenders", Price: 0},
						{Name: "Cordon Bleu", Price: 0},
						{Name: "Steak haché", Price: 0},
					},
				},
				sauceGroup(2),
			},
		},
		{
			ID: 21, Slug: "frites", Name: "Frites", Price: nil,
			OptionGroups: []domain.OptionGroup{
				{
					Name: domain.SizeGroup,
					Mode: domain.GroupModeSingle,
					Choices: []domain.Choice{
						{Name: "Moyenne", Price: 2.50},
						{Name: "Grande", Price: 3.00},
					},
				},
				sauceGroup(1),
			},
		},
		{
			ID: 22, Slug: "menu-smash", Name: "Menu Smash", Price: price(9.00),
			OptionGroups: []domain.OptionGroup{
				drinkGroup(),
				sauceGroup(2),
				removeGroup(),
			},
		},
	}
}
