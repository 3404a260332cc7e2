package config

import "despacho_backend/internal/funnel/domain"

// DefaultStages returns the stock five-step funnel a new despacho starts
// with: contact and welcome, presentation videos, e.Firma collection,
// payment pursuit, and close.
func DefaultStages() []StageDefinition {
	return []StageDefinition{
		{
			ID:    1,
			Title: "Paso 1: Contacto y Bienvenida",
			Label: domain.LabelInitialContact,
			AutoMessage: AutoMessage{
				Enabled:             true,
				InitialDelayMinutes: 5,
				Text:                "¡Hola! Gracias por tu interés. Soy el Contador Miguel. ¿Qué tipo de negocio tienes?",
				AttachmentKind:      domain.AttachmentNone,
			},
			ClassifierGate: ClassifierGate{
				Enabled:          true,
				TriggerQuestion:  "Saber si es Plataforma (Uber/Didi) o Negocio Físico.",
				ExpectedKeywords: []string{"uber", "didi", "plataforma", "chofer", "repartidor", "airbnb"},
				OffTrackReply:    "Entendido. Para darte la mejor asesoría, necesito confirmar: ¿Tu actividad es en Apps (Uber/Didi) o negocio local?",
			},
			MoveToInactiveAfterFinish: true,
			FollowUps: []FollowUpAction{
				{ID: "seq_1", DelayValue: 10, DelayUnit: DelayMinutes, Message: "¿Sigues ahí? Solo quiero saber si eres Uber, Didi o negocio físico para enviarte la info correcta.", AttachmentKind: domain.AttachmentNone},
				{ID: "seq_2", DelayValue: 1, DelayUnit: DelayHours, Message: "Hola, veo que estás ocupado. Te dejo aquí un video de presentación.", AttachmentKind: domain.AttachmentVideo},
				{ID: "seq_3", DelayValue: 1, DelayUnit: DelayDays, Message: "Buenos días. ¿Pudiste ver la información?", AttachmentKind: domain.AttachmentNone, TimeWindow: "08:00-10:00"},
				{ID: "seq_4", DelayValue: 1, DelayUnit: DelayDays, Message: "Sigo pendiente. Recuerda que la primera asesoría es gratis.", AttachmentKind: domain.AttachmentNone},
				{ID: "seq_5", DelayValue: 3, DelayUnit: DelayDays, Message: "Hola. ¿Aún te interesa llevar tu contabilidad en orden?", AttachmentKind: domain.AttachmentNone},
				{ID: "seq_6", DelayValue: 7, DelayUnit: DelayDays, Message: "Hola. Voy a cerrar tu expediente por falta de respuesta, pero si necesitas algo, aquí estoy.", AttachmentKind: domain.AttachmentNone},
			},
		},
		{
			ID:    2,
			Title: "Paso 2: Videos de Presentación",
			Label: domain.LabelWelcomeSent,
			AutoMessage: AutoMessage{
				Enabled:        true,
				Text:           "Bienvenido. Aquí tienes un video sobre cómo trabajamos.",
				AttachmentKind: domain.AttachmentVideo,
				AttachmentName: "presentacion_despacho.mp4",
			},
		},
		{
			ID:    3,
			Title: "Paso 3: Recolección de Firmas",
			Label: domain.LabelQuoteSent,
			AutoMessage: AutoMessage{
				Enabled:        true,
				Text:           "Para avanzar, necesito que subas tus archivos del SAT en este enlace seguro:",
				AttachmentKind: domain.AttachmentNone,
			},
			DocumentGate: DocumentGate{
				Enabled:           true,
				RequiredDocs:      []string{".cer", ".key", "contraseña"},
				UploadInstruction: "Para poder darte de alta y facturar, necesito tus archivos del SAT (e.Firma). Súbelos en el siguiente enlace seguro.",
				SuccessMessage:    "¡Archivos recibidos y validados! Continuamos con el proceso.",
			},
			FollowUps: []FollowUpAction{
				{ID: "seq_c1", DelayValue: 1, DelayUnit: DelayDays, Message: "Hola, veo que aún no subes tus sellos. ¿Tienes problemas con el archivo?", AttachmentKind: domain.AttachmentNone},
				{ID: "seq_c2", DelayValue: 3, DelayUnit: DelayDays, Message: "Sigo esperando tus archivos .CER y .KEY para poder facturar.", AttachmentKind: domain.AttachmentNone},
			},
		},
		{
			ID:    4,
			Title: "Paso 4: Posible Pago",
			Label: domain.LabelPossiblePayment,
			PursuitPolicy: PursuitPolicy{
				Enabled:          true,
				Intensity:        domain.IntensityMedium,
				CustomObjections: []string{"No tengo dinero", "Está caro", "Déjame pensarlo"},
			},
		},
		{
			ID:    5,
			Title: "Paso 5: Cierre Exitoso",
			Label: domain.LabelWon,
			AutoMessage: AutoMessage{
				Enabled:        true,
				Text:           "¡Gracias por tu confianza! Comencemos.",
				AttachmentKind: domain.AttachmentAudio,
				AttachmentName: "bienvenida_audio.mp3",
			},
		},
	}
}
