package companion

import "strings"

// Exercise kinds served by QuickExercise.
const (
	ExerciseBreathing   = "breathing"
	ExerciseGrounding   = "grounding"
	ExerciseMindfulness = "mindfulness"
)

var exercises = map[string]string{
	ExerciseBreathing: `🌬️ **Box Breathing Exercise**

Let's calm your nervous system together:

1. **Breathe IN** through your nose for **4 counts**
2. **HOLD** your breath for **4 counts**
3. **Breathe OUT** slowly through your mouth for **4 counts**
4. **HOLD** empty for **4 counts**

Repeat this cycle 4 times. I'll wait here with you. 💚

Take your time. There's no rush.`,

	ExerciseGrounding: `🌿 **5-4-3-2-1 Grounding Exercise**

Let's bring you back to the present moment:

**5** - Name **5 things you can SEE** around you
**4** - Name **4 things you can TOUCH** or feel
**3** - Name **3 things you can HEAR** right now
**2** - Name **2 things you can SMELL**
**1** - Name **1 thing you can TASTE**

Take your time with each one. This helps anchor you in the here and now. ✨`,

	ExerciseMindfulness: `🧘 **One-Minute Mindfulness**

Find a comfortable position and:

1. Close your eyes gently (or soften your gaze)
2. Take 3 deep breaths, letting each exhale be longer than the inhale
3. Notice the sensation of your body being supported
4. Feel your feet on the ground
5. Let thoughts come and go like clouds passing by
6. When ready, slowly open your eyes

You just gave yourself a gift of presence. 💜`,
}

// QuickExercise returns the guide for kind. Unknown kinds get the breathing exercise.
func QuickExercise(kind string) string {
	if text, ok := exercises[strings.ToLower(strings.TrimSpace(kind))]; ok {
		return text
	}
	return exercises[ExerciseBreathing]
}
