package options

import optioninfra "qcinspect/infrastructure/options"

type OptionsView struct {
	Kind    string               `json:"kind"`
	Options []optioninfra.Option `json:"options"`
}
