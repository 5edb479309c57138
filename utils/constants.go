// File: utils/constants.go
package utils

// DaysOfWeek are the user-visible day labels, indexed 0=Monday..6=Sunday.
var DaysOfWeek = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado", "Domingo"}

// DefaultOffsetsByDay holds the default booking-window offsets (in days)
// for each day of the week (0=Monday..6=Sunday), used when a reservation
// is created without an explicit offset.
var DefaultOffsetsByDay = map[int]int{
	0: 2, // Monday: 2 days in advance
	1: 3, // Tuesday: 3 days in advance
	2: 4, // Wednesday: 4 days in advance
	3: 5, // Thursday: 5 days in advance
	4: 6, // Friday: 6 days in advance
	5: 7, // Saturday: 7 days in advance
	6: 1, // Sunday: 1 day in advance
}

const (
	UnexpectedErrorMailSubject = "Error en la reserva"
	UnexpectedErrorMailBody    = "En este momento es imposible gestionar tu reserva por un error inesperado. Te recomendamos acceder a WodBuster y hacer la reserva manualmente"
	FullClassBookedMailSubject = "Clase reservada"
	FullClassBookedMailBody    = "¡Enhorabuena! Parece que se quedó una plaza libre y he conseguido reservarte la clase. ¡Nos vemos en el box!"
	ErrorAutohealedMailSubject = "Clase reservada"
	ErrorAutohealedMailBody    = "Parece que he podido recuperarme del error y he conseguido reservar la clase. ¡A darlo todo en el box!"
	ClassBookedMailSubject     = "Clase reservada con éxito"
	ClassBookedMailBody        = "La clase se ha reservado con éxito. ¡Disfruta del WOD!"
)
