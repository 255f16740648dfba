package fakeapi

import "time"

// Generation defaults.
const (
	DefaultCount = 120
	DefaultSeed  = 42

	// spread is how far back generated createdAt values reach.
	spread = 120 * 24 * time.Hour

	// undatedEvery leaves every n-th record without createdAt.
	undatedEvery = 37
	// unscoredEvery leaves every n-th record without a score.
	unscoredEvery = 23
	// noSchoolEvery leaves every n-th record without a school snapshot.
	noSchoolEvery = 29
)

type school struct {
	name     string
	programs []string
}

var catalog = []school{
	{"Transformación Empresarial", []string{
		"Administración de Empresas",
		"Administración de la Seguridad Social",
		"Administración en Servicios de Salud",
	}},
	{"Transversales", []string{
		"Ciencias Básicas", "Emprendimiento", "Administración Deportiva", "Idiomas", "Sociohumanística",
	}},
	{"Ingeniería", []string{
		"Ingeniería de Sistemas", "Ingeniería Industrial", "Ingeniería Electrónica",
	}},
	{"Diseño y Comunicaciones", []string{
		"Diseño Gráfico", "Diseño de Modas", "Comunicación Social y Periodismo",
	}},
	{"Transformación de Negocios", []string{
		"Contaduría Pública", "Derecho", "Negocios Internacionales", "Publicidad y Mercadeo",
	}},
	{"Especializaciones", []string{
		"Alta Gerencia", "Gerencia de Proyectos", "Analítica de Datos", "Transformación Digital",
	}},
}

var firstNames = []string{
	"Ana", "Luis", "Marta", "Julián", "Camila", "Andrés", "Valentina", "Santiago",
	"Daniela", "Felipe", "Laura", "Sebastián", "Paula", "Mateo", "Sofía", "Nicolás",
}

var lastNames = []string{
	"Pérez", "Gómez", "Rodríguez", "Martínez", "López", "Hernández", "Díaz", "Muñoz",
	"Rojas", "Vargas", "Castro", "Ortiz", "Ramírez", "Suárez",
}

var verdicts = []string{
	"Contratación Recomendada",
	"Contratar con Precaución",
	"No Recomendar Contratación",
	"Recomendada para segunda entrevista",
	"",
}
