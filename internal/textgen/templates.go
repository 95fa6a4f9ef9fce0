package textgen

// Templates are keyed by platform. {topic} is replaced with the topic as
// given and {hashtag} with the topic stripped of all whitespace.
var templates = map[string]string{
	"instagram": "🌟 {topic} \n" +
		"\n" +
		"¿Sabías que esto puede cambiar tu perspectiva? Te cuento mi experiencia...\n" +
		"\n" +
		"💫 Punto clave 1\n" +
		"✨ Punto clave 2  \n" +
		"🔥 Punto clave 3\n" +
		"\n" +
		"¿Qué opinas? ¡Cuéntame en los comentarios! 👇\n" +
		"\n" +
		"#{hashtag} #inspiracion #contenido #shadowempire",

	"twitter": "🚀 {topic}\n" +
		"\n" +
		"Esto es lo que he aprendido:\n" +
		"→ Insight 1\n" +
		"→ Insight 2\n" +
		"→ Insight 3\n" +
		"\n" +
		"¿Cuál es tu experiencia? 🧵\n" +
		"\n" +
		"#{hashtag} #twitter",

	"facebook": "{topic} - Mi reflexión personal\n" +
		"\n" +
		"Hoy quiero compartir contigo algo que me ha marcado profundamente...\n" +
		"\n" +
		"[Contenido desarrollado aquí con experiencias personales y llamada a la acción]\n" +
		"\n" +
		"¿Te ha pasado algo similar? Me encantaría leer tus experiencias en los comentarios.",

	"linkedin": "{topic}: Insights desde mi experiencia profesional\n" +
		"\n" +
		"En mis años de carrera, he observado que...\n" +
		"\n" +
		"🔑 Puntos clave:\n" +
		"• Aspecto técnico 1\n" +
		"• Aspecto técnico 2\n" +
		"• Aspecto técnico 3\n" +
		"\n" +
		"¿Cómo abordas tú este tema en tu industria?\n" +
		"\n" +
		"#{hashtag} #LinkedIn #Profesional",

	"youtube": "En este video exploramos {topic} desde una perspectiva única.\n" +
		"\n" +
		"🎯 Lo que aprenderás:\n" +
		"- Concepto fundamental\n" +
		"- Aplicación práctica\n" +
		"- Casos de estudio\n" +
		"- Tips avanzados\n" +
		"\n" +
		"⏰ Timestamps:\n" +
		"00:00 Introducción\n" +
		"02:30 Desarrollo principal\n" +
		"08:45 Ejemplos prácticos\n" +
		"12:15 Conclusiones\n" +
		"\n" +
		"💬 ¡Déjame saber qué piensas en los comentarios!\n" +
		"\n" +
		"#{hashtag} #YouTube #Educativo",

	"blog": "# {topic}: Una Guía Completa\n" +
		"\n" +
		"## Introducción\n" +
		"En el mundo actual, {topic} se ha convertido en...\n" +
		"\n" +
		"## Desarrollo Principal\n" +
		"### Subtema 1\n" +
		"Contenido detallado...\n" +
		"\n" +
		"### Subtema 2\n" +
		"Análisis profundo...\n" +
		"\n" +
		"### Subtema 3\n" +
		"Ejemplos prácticos...\n" +
		"\n" +
		"## Conclusión\n" +
		"Para finalizar, {topic} representa una oportunidad única para...\n" +
		"\n" +
		"¿Qué opinas sobre este tema? ¡Comparte tus pensamientos!",
}
