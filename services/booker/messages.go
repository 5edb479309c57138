package booker

// Timeline messages, user-visible in Spanish. Formatting directives are
// filled with dates/times rendered in Madrid civil time.
const (
	MsgClassWaitingOver         = "La clase del %s ya ha pasado y no se pudo reservar. Comenzando reserva para el %s"
	MsgWaitUntilBookingOpen     = "Esperando hasta el %s cuando las reservas para el %s estén disponibles"
	MsgBookingCompleted         = "Reserva para el %s completada correctamente"
	MsgClassFull                = "La clase del %s está llena. Esperando a que haya plazas disponibles"
	MsgBookingPenalization      = "%s. Se intentará de nuevo en cuanto termine la cuenta atrás."
	MsgWaitClassLoaded          = "Esperando a que las clases del día %s estén cargadas"
	MsgUnexpectedNetworkError   = "Error inesperado de red. Esperando %d segundos antes de volver a intentarlo..."
	MsgUnexpectedPortalResponse = "Respuesta inesperada de WodBuster. Esperando %d segundos antes de volver a intentarlo..."
	MsgCredentialsExpired       = "Tus credenciales están caducadas. Vuelve a logarte y edita esta reserva para que vuelva a activarse"
	MsgLoginFailed              = "Login fallido: credenciales inválidas. Vuelve a logarte y vuelve a intentarlo"
	MsgInvalidBoxURL            = "La URL del box introducida no es válida o no tienes acceso al mismo. Actualiza la URL y vuelve a intentarlo"
	MsgInvalidClassTime         = "La hora de la reserva no es válida. Edita la reserva con una hora en formato HH:MM"
	MsgTooManyErrors            = "Se han producido demasiados errores al intentar reservar. Reserva parada"
	MsgPaused                   = "Pausado"
	MsgNotWhitelisted           = "El usuario no está en la lista de usuarios permitidos. Reserva no iniciada"

	msgIgnoreWeek      = "Se ignora esta semana y se intentará reservar para el mismo día de la siguiente semana"
	MsgClassNotFound   = "El %s no hay clase a las %s. " + msgIgnoreWeek
	MsgBookingError    = "Error al reservar la clase del %s: %s. " + msgIgnoreWeek
)

// Booking-hub event names the workers wait on.
const (
	EventChangedBooking = "changedBooking"
	EventChangedPizarra = "changedPizarra"
)

// Display formats for timeline messages.
const (
	dateFormat     = "02/01/2006"
	timeFormat     = "15:04:05"
	dateTimeFormat = "02/01/2006 a las 15:04:05"
)
