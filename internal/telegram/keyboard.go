package telegram

// Button описывает кнопку inline-клавиатуры: метка и токен действия,
// который вернётся в callback-запросе.
type Button struct {
	Label  string
	Action string
}

// Keyboard описывает inline-клавиатуру как список рядов кнопок.
type Keyboard [][]Button

// Grid раскладывает кнопки в ряды по указанному числу кнопок в ряду.
func Grid(buttons []Button, perRow int) Keyboard {
	if perRow < 1 {
		perRow = 1
	}

	var kb Keyboard
	for len(buttons) > 0 {
		n := perRow
		if n > len(buttons) {
			n = len(buttons)
		}
		kb = append(kb, buttons[:n])
		buttons = buttons[n:]
	}
	return kb
}
