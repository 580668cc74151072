package store

// refSeed is one row of a pre-seeded reference enumeration, with the
// marketplace's Russian and Korean display names.
type refSeed struct {
	Name   string
	NameRU string
	NameKR string
}

var fuelSeed = []refSeed{
	{Name: "gasoline", NameRU: "Бензин", NameKR: "가솔린"},
	{Name: "diesel", NameRU: "Дизель", NameKR: "디젤"},
	{Name: "electric", NameRU: "Электрический", NameKR: "전기"},
	{Name: "gasoline+electric", NameRU: "Бензин+Электричество", NameKR: "가솔린+전기"},
	{Name: "diesel+electric", NameRU: "Дизель+Электричество", NameKR: "디젤+전기"},
	{Name: "gasoline+lpg", NameRU: "Бензин+ГБО", NameKR: "가솔린+LPG"},
	{Name: "other", NameRU: "Другое", NameKR: "기타"},
}

var transmissionSeed = []refSeed{
	{Name: "automatic", NameRU: "Автоматическая", NameKR: "자동"},
	{Name: "mechanical", NameRU: "Механическая", NameKR: "수동"},
	{Name: "semi_automatic", NameRU: "Полуавтоматическая", NameKR: "반자동"},
	{Name: "variator", NameRU: "Вариатор", NameKR: "무단변속기"},
	{Name: "other", NameRU: "Другое", NameKR: "기타"},
}
