package attendance

import "time"

// Pair 将已去重、升序的打卡配对为会话。
//
// 每个到达的搜索窗口截止到下一个到达。窗口内第一个离开开始的一串
// 离开（相邻间隔不超过 window）视为重复刷卡，取其中最后一个作为配对离开；
// 窗口内其余离开以及前面没有到达的离开成为孤立会话。
func Pair(punches []Punch, window time.Duration) []Session {
	sessions := make([]Session, 0, len(punches))
	n := len(punches)
	for i := 0; i < n; {
		p := punches[i]
		if p.Direction != Arrival {
			sessions = append(sessions, orphan(p))
			i++
			continue
		}

		end := i + 1
		for end < n && punches[end].Direction != Arrival {
			end++
		}

		arr := p.At
		if end == i+1 {
			sessions = append(sessions, Session{Arrival: &arr})
			i = end
			continue
		}

		chosen := i + 1
		for k := i + 2; k < end && punches[k].At.Sub(punches[chosen].At) <= window; k++ {
			chosen = k
		}
		dep := punches[chosen].At
		sessions = append(sessions, Session{Arrival: &arr, Departure: &dep})
		for k := chosen + 1; k < end; k++ {
			sessions = append(sessions, orphan(punches[k]))
		}
		i = end
	}
	return sessions
}

func orphan(p Punch) Session {
	t := p.At
	return Session{Departure: &t}
}
