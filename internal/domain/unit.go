package domain

// WorkUnit — одна исполняемая хранимая процедура в составе refresh-батча.
//
// Единицы работы выбираются из worklist-таблицы и выполняются строго
// по возрастанию ExecOrder, по одной за раз. После выборки для конкретного
// run единица неизменяема.
type WorkUnit struct {
	// Name — имя хранимой процедуры (непрозрачная ссылка для движка).
	Name string

	// DataSource — классификационный тег источника данных (например "BMT").
	DataSource string

	// ExecOrder — позиция в общем порядке выполнения.
	// При равенстве сохраняется порядок, возвращённый провайдером.
	ExecOrder int
}

// CallStatement возвращает SQL-выражение для запуска процедуры в движке.
func (u WorkUnit) CallStatement() string {
	return "CALL " + u.Name + ";"
}

// DataSourceLabel возвращает человекочитаемую метку источника для уведомлений.
func (u WorkUnit) DataSourceLabel() string {
	if u.DataSource == "SPDST" {
		return "SPDST"
	}
	return "SPDST/Others"
}

// FailureRecord — итог единицы работы, исчерпавшей бюджет повторов.
//
// Первый FailureRecord в run фатален: оставшиеся единицы не запускаются.
type FailureRecord struct {
	// Unit — единица, на которой остановился батч.
	Unit WorkUnit

	// Error — текст последней терминальной ошибки движка.
	Error string

	// Region — регион run, в котором произошёл отказ.
	Region string
}
